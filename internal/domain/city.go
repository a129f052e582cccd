package domain

// A French commune as returned by the public commune directory.
type City struct {
	Name           string   `json:"nom"`
	Code           string   `json:"code"`
	DepartmentCode string   `json:"codeDepartement"`
	RegionCode     string   `json:"codeRegion"`
	PostalCodes    []string `json:"codesPostaux"`
	Population     int      `json:"population"`
}

// An address suggestion resolved to coordinates.
type AddressCandidate struct {
	Address     string      `json:"address"`
	Coordinates Coordinates `json:"coordinates"`
}
