package models

// Site is one entry of the site registry. ID names the site's output file.
type Site struct {
	ID  string
	Lat float64
	Lon float64
}

// Observation is one reading of a gridded field at a single time and grid point.
type Observation struct {
	Value float64
	Date  string // leading token of the source file name, verbatim
	Hour  int
	Lat   float64
	Lon   float64
}

// RankedObservation is an Observation plus its proximity rank relative to a
// site. Rank indexes distinct distance values, so equidistant points share it.
type RankedObservation struct {
	Observation
	Rank int
}

// Window holds the half-widths, in degrees, of the box searched around a site.
type Window struct {
	Lat float64
	Lon float64
}
