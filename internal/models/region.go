package models

type Region struct {
	RegionCode  string `json:"region_code"`
	CountryCode string `json:"country_code"`
	StateCode   string `json:"state_code"`
	Label       string `json:"label"`
}
