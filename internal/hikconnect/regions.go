package hikconnect

import "strings"

type Region string

const (
	RegionGlobal Region = "global"
	RegionEU     Region = "eu"
	RegionUS     Region = "us"
	RegionAsia   Region = "asia"
)

var regionBaseURLs = map[Region]string{
	RegionGlobal: "https://api.hik-connect.com",
	RegionEU:     "https://api-eu.hik-connect.com",
	RegionUS:     "https://api-us.hik-connect.com",
	RegionAsia:   "https://api-asia.hik-connect.com",
}

// ValidRegion reports whether r is one of the regions HikConnect serves.
func ValidRegion(r string) bool {
	_, ok := regionBaseURLs[Region(r)]
	return ok
}

// ResolveBaseURL maps a region to its API endpoint. Unknown regions resolve
// to the global endpoint.
func ResolveBaseURL(region string) string {
	if u, ok := regionBaseURLs[Region(strings.ToLower(region))]; ok {
		return u
	}
	return regionBaseURLs[RegionGlobal]
}
