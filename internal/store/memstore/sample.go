package memstore

import (
	"time"

	"github.com/nitesh/place_explorer/pkg/models"
)

// Sample tag ids.
const (
	TagNASA    int64 = 1
	TagMuseum  int64 = 2
	TagRetired int64 = 3
)

// Sample place ids.
const (
	PlaceLouvre int64 = iota + 1
	PlaceVersailles
	PlaceReims
	PlaceLyon
	PlaceBordeaux
	PlaceMadrid
	PlaceKennedy
	PlaceHouston
	PlaceToulouse
	PlaceDraft
)

func published(title, slug string) PlaceTranslation {
	return PlaceTranslation{Title: title, Slug: slug, Description: title, Published: true}
}

func both(title, slug string) map[string]PlaceTranslation {
	return map[string]PlaceTranslation{"fr": published(title, slug), "en": published(title, slug)}
}

// Sample returns a store seeded with a small set of places across France,
// Spain and the United States.
func Sample() *Store {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	day := func(n int) time.Time { return base.AddDate(0, 0, n) }

	return New().
		AddTags(
			Tag{ID: TagNASA, Color: "#0b3d91", Active: true, Translations: map[string]TagTranslation{
				"fr": {Name: "NASA", Slug: "nasa", Published: true},
				"en": {Name: "NASA", Slug: "nasa", Published: true},
			}},
			Tag{ID: TagMuseum, Color: "#aa7733", Active: true, Translations: map[string]TagTranslation{
				"fr": {Name: "Musée", Slug: "musee", Published: true},
				"en": {Name: "Museum", Slug: "museum", Published: true},
			}},
			Tag{ID: TagRetired, Color: "#999999", Active: false, Translations: map[string]TagTranslation{
				"fr": {Name: "Ancien", Slug: "ancien", Published: true},
				"en": {Name: "Retired", Slug: "retired", Published: true},
			}},
		).
		AddPlaces(
			Place{ID: PlaceLouvre, Latitude: 48.8606, Longitude: 2.3376, Address: "Rue de Rivoli, Paris", IsFeatured: true,
				CreatedAt: day(1), Translations: both("Louvre", "louvre"), TagIDs: []int64{TagMuseum},
				MainPhoto: &models.Photo{ID: 11, Filename: "louvre.jpg"}},
			Place{ID: PlaceVersailles, Latitude: 48.8049, Longitude: 2.1204, Address: "Place d'Armes, Versailles",
				CreatedAt: day(2), Translations: both("Versailles", "versailles"), TagIDs: []int64{TagMuseum, TagRetired}},
			Place{ID: PlaceReims, Latitude: 49.2583, Longitude: 4.0317, Address: "Reims",
				CreatedAt: day(3), Translations: both("Reims", "reims")},
			Place{ID: PlaceLyon, Latitude: 45.7640, Longitude: 4.8357, Address: "Lyon",
				CreatedAt: day(4), Translations: both("Lyon", "lyon")},
			Place{ID: PlaceBordeaux, Latitude: 44.8378, Longitude: -0.5792, Address: "Bordeaux",
				CreatedAt: day(5), Translations: both("Bordeaux", "bordeaux")},
			Place{ID: PlaceMadrid, Latitude: 40.4168, Longitude: -3.7038, Address: "Madrid",
				CreatedAt: day(6), Translations: both("Madrid", "madrid")},
			Place{ID: PlaceKennedy, Latitude: 28.5721, Longitude: -80.6480, Address: "Merritt Island, Florida",
				CreatedAt: day(7), Translations: both("Kennedy Space Center", "kennedy-space-center"), TagIDs: []int64{TagNASA}},
			Place{ID: PlaceHouston, Latitude: 29.5519, Longitude: -95.0970, Address: "Houston, Texas",
				CreatedAt: day(8), Translations: both("Space Center Houston", "space-center-houston"), TagIDs: []int64{TagNASA, TagMuseum}},
			Place{ID: PlaceToulouse, Latitude: 43.6047, Longitude: 1.4442, Address: "Toulouse",
				CreatedAt: day(8), Translations: both("Cité de l'espace", "cite-espace"), TagIDs: []int64{TagNASA}},
			Place{ID: PlaceDraft, Latitude: 48.8530, Longitude: 2.3499, Address: "Île de la Cité, Paris",
				CreatedAt: day(9), Translations: map[string]PlaceTranslation{"fr": {Title: "Brouillon", Slug: "brouillon"}},
				TagIDs: []int64{TagNASA}},
		)
}
