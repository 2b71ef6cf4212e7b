package config

// SourceConfig declares how one input file maps onto (state, year) records.
type SourceConfig struct {
	Name      string         `yaml:"name" validate:"required"`
	Path      string         `yaml:"path" validate:"required"`
	Format    string         `yaml:"format" validate:"oneof=csv tsv text xlsx"`
	Sheet     string         `yaml:"sheet"`
	HeaderRow int            `yaml:"header_row" validate:"gte=0"`
	SkipRows  int            `yaml:"skip_rows" validate:"gte=0"`
	State     StateColumn    `yaml:"state"`
	Year      YearColumn     `yaml:"year"`
	Wide      *WideConfig    `yaml:"wide"`
	Columns   []ColumnConfig `yaml:"columns" validate:"dive"`
	Filters   []FilterConfig `yaml:"filters" validate:"dive"`
	Aggregate string         `yaml:"aggregate" validate:"omitempty,oneof=none mean sum"`
}

// StateColumn locates the state identifier.
type StateColumn struct {
	Column string `yaml:"column"`
	Index  int    `yaml:"index" validate:"gte=0"`
	// Codes is none, postal (AL) or fred (ALURN).
	Codes string `yaml:"codes" validate:"omitempty,oneof=none postal fred"`
	// OnlyKnown drops rows whose state is outside the configured universe.
	OnlyKnown bool `yaml:"only_known"`
}

// YearColumn locates the year. Exactly one of the fields is expected to be set.
type YearColumn struct {
	Column       string `yaml:"column"`
	DatePrefix   bool   `yaml:"date_prefix"`
	FromFilename string `yaml:"from_filename"`
	Value        int    `yaml:"value"`
}

// WideConfig melts a wide layout into one value column.
type WideConfig struct {
	// Mode is years (year-named columns), series (one column per state) or
	// columns (explicit year to column mapping).
	Mode    string       `yaml:"mode" validate:"oneof=years series columns"`
	Value   ColumnConfig `yaml:"value"`
	Columns []YearSource `yaml:"columns" validate:"dive"`
}

// YearSource maps one year onto a source column by header or 1-based index.
type YearSource struct {
	Year   int    `yaml:"year" validate:"required"`
	Source string `yaml:"source"`
	Index  int    `yaml:"index" validate:"gte=0"`
}

// ColumnConfig declares one output column and its source.
type ColumnConfig struct {
	Name         string  `yaml:"name" validate:"required"`
	Source       string  `yaml:"source"`
	Index        int     `yaml:"index" validate:"gte=0"`
	Type         string  `yaml:"type" validate:"omitempty,oneof=string int float"`
	Required     bool    `yaml:"required"`
	Thousands    string  `yaml:"thousands"`
	DecimalComma bool    `yaml:"decimal_comma"`
	Scale        float64 `yaml:"scale"`
}

// SourceColumn returns the header the column is read from.
func (c ColumnConfig) SourceColumn() string {
	if c.Source != "" {
		return c.Source
	}
	return c.Name
}

// FilterConfig keeps only rows whose column matches.
type FilterConfig struct {
	Column    string   `yaml:"column" validate:"required"`
	Equals    string   `yaml:"equals"`
	NotEquals string   `yaml:"not_equals"`
	In        []string `yaml:"in"`
}

// FeaturesConfig controls derivation and alignment of indicators.
type FeaturesConfig struct {
	Derived   []DerivedConfig   `yaml:"derived" validate:"dive"`
	Alignment []AlignmentConfig `yaml:"alignment" validate:"dive"`
}

// DerivedConfig computes a new indicator from existing ones.
type DerivedConfig struct {
	Name string `yaml:"name" validate:"required"`
	// Op is ratio (a/b), difference (a-b), sum or copy.
	Op     string   `yaml:"op" validate:"oneof=ratio difference sum copy"`
	Inputs []string `yaml:"inputs" validate:"required,min=1"`
	Scale  float64  `yaml:"scale"`
	Round  *int     `yaml:"round"`
}

// AlignmentConfig maps observation years of a sparse indicator onto the
// analysis years.
type AlignmentConfig struct {
	Indicator string `yaml:"indicator" validate:"required"`
	// Mode is exact or nearest; ties in nearest go to the earlier year.
	Mode   string `yaml:"mode" validate:"oneof=exact nearest"`
	MaxGap int    `yaml:"max_gap" validate:"gte=0"`
}

// VerifyConfig declares the expected universe and value rules.
type VerifyConfig struct {
	States    []string       `yaml:"states"`
	Aggregate string         `yaml:"aggregate"`
	Expect    []ExpectConfig `yaml:"expect" validate:"dive"`
	Rules     []RuleConfig   `yaml:"rules" validate:"dive"`
}

// ExpectConfig sets the years an indicator must cover.
type ExpectConfig struct {
	Indicator string `yaml:"indicator" validate:"required"`
	Years     []int  `yaml:"years"`
	YearFrom  int    `yaml:"year_from"`
	YearTo    int    `yaml:"year_to"`
}

// ExpectedYears returns the expected years, nil when unset.
func (e ExpectConfig) ExpectedYears() []int {
	if len(e.Years) > 0 {
		return append([]int(nil), e.Years...)
	}
	if e.YearFrom == 0 || e.YearTo < e.YearFrom {
		return nil
	}
	years := make([]int, 0, e.YearTo-e.YearFrom+1)
	for y := e.YearFrom; y <= e.YearTo; y++ {
		years = append(years, y)
	}
	return years
}

// RuleConfig is one value check.
type RuleConfig struct {
	Name      string   `yaml:"name"`
	Kind      string   `yaml:"kind" validate:"oneof=range non_negative not_null sum_matches aggregate_matches"`
	Indicator string   `yaml:"indicator"`
	Min       *float64 `yaml:"min"`
	Max       *float64 `yaml:"max"`
	Parts     []string `yaml:"parts"`
	Total     string   `yaml:"total"`
	Tolerance float64  `yaml:"tolerance" validate:"gte=0"`
}
