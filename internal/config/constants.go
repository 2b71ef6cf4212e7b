package config

// Application constants
const (
	// Application Info
	AppName    = "election-analysis"
	AppVersion = "1.0.0"

	// File Paths (relative to the root directory)
	DefaultDataDir    = "data"
	DefaultReportsDir = "reports"
	DefaultPlotsDir   = "reports/plots"
	DefaultLogsDir    = "logs"

	// Analysis defaults
	DefaultLabel        = "republican_percent"
	DefaultFolds        = 5
	DefaultSeed         = 42
	DefaultTestFraction = 0.2
	DefaultTolerance    = 1e-9

	// NationalAggregate is the row some sources carry for the whole country.
	NationalAggregate = "United States"

	// Report files
	FeatureTableFile = "feature_table.csv"
	ExclusionsFile   = "exclusions.csv"
	VerificationFile = "verification.json"
	RunReportFile    = "report.json"
	RunSummaryFile   = "summary.txt"
)

// ElectionYears are the presidential election years covered by the data.
var ElectionYears = []int{2000, 2004, 2008, 2012, 2016, 2020}

// DefaultCandidates is the indicator pool offered to feature selection.
var DefaultCandidates = []string{
	"gdp_per_capita",
	"college_finishers",
	"unemployment_rate",
	"urban_population",
	"age_18_24_percent",
	"age_25_44_percent",
	"age_45_64_percent",
	"age_65_plus_percent",
}

// ValidStates lists the fifty states.
var ValidStates = []string{
	"Alabama", "Alaska", "Arizona", "Arkansas", "California", "Colorado",
	"Connecticut", "Delaware", "Florida", "Georgia", "Hawaii", "Idaho",
	"Illinois", "Indiana", "Iowa", "Kansas", "Kentucky", "Louisiana",
	"Maine", "Maryland", "Massachusetts", "Michigan", "Minnesota",
	"Mississippi", "Missouri", "Montana", "Nebraska", "Nevada",
	"New Hampshire", "New Jersey", "New Mexico", "New York",
	"North Carolina", "North Dakota", "Ohio", "Oklahoma", "Oregon",
	"Pennsylvania", "Rhode Island", "South Carolina", "South Dakota",
	"Tennessee", "Texas", "Utah", "Vermont", "Virginia", "Washington",
	"West Virginia", "Wisconsin", "Wyoming",
}

// PostalCodes maps two-letter postal codes to state names.
var PostalCodes = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DE": "Delaware",
	"FL": "Florida", "GA": "Georgia", "HI": "Hawaii", "ID": "Idaho",
	"IL": "Illinois", "IN": "Indiana", "IA": "Iowa", "KS": "Kansas",
	"KY": "Kentucky", "LA": "Louisiana", "ME": "Maine", "MD": "Maryland",
	"MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota", "MS": "Mississippi",
	"MO": "Missouri", "MT": "Montana", "NE": "Nebraska", "NV": "Nevada",
	"NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico", "NY": "New York",
	"NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio", "OK": "Oklahoma",
	"OR": "Oregon", "PA": "Pennsylvania", "RI": "Rhode Island", "SC": "South Carolina",
	"SD": "South Dakota", "TN": "Tennessee", "TX": "Texas", "UT": "Utah",
	"VT": "Vermont", "VA": "Virginia", "WA": "Washington", "WV": "West Virginia",
	"WI": "Wisconsin", "WY": "Wyoming", "DC": "District of Columbia",
	"US": NationalAggregate,
}
