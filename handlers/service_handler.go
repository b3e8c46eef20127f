package handlers

import (
	"net/http"
	"strings"
	"unicode"

	"ume-client/models"
)

func (b *Backend) CitiesHandler(w http.ResponseWriter, r *http.Request) error {
	b.mu.Lock()
	items := append([]models.City(nil), b.cities...)
	b.mu.Unlock()
	return writeJSON(w, http.StatusOK, models.CityList{Success: true, Items: items})
}

// SearchCitiesHandler matches city names by case-insensitive prefix.
func (b *Backend) SearchCitiesHandler(w http.ResponseWriter, r *http.Request) error {
	word := capitalize(strings.TrimSpace(r.URL.Query().Get("q")))

	b.mu.Lock()
	defer b.mu.Unlock()

	items := []models.City{}
	for _, city := range b.cities {
		if len(items) == citySearchLimit {
			break
		}
		if strings.HasPrefix(strings.ToLower(city.Name), strings.ToLower(word)) {
			items = append(items, city)
		}
	}
	return writeJSON(w, http.StatusOK, models.CityList{Success: true, Items: items})
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	if len(runes) > 0 {
		runes[0] = unicode.ToUpper(runes[0])
	}
	return string(runes)
}
