package models

type City struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type CityList struct {
	Success bool   `json:"success,omitempty"`
	Items   []City `json:"items"`
}
