// Package plotting renders indicator and model charts with gonum/plot.
//
// Chart builders return *plot.Plot values; a Renderer turns them into PNG
// files or, for a sequence of frames, an animated GIF.
package plotting
