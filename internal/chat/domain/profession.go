package domain

// Profession is a catalog entry. The catalog is seeded at startup and
// read-only at runtime.
type Profession struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	MinLevel    int    `json:"level"`
	Description string `json:"description,omitempty"`
}

// DefaultProfessions is the catalog the original Anongram prototype shipped
// with. Seeded by the application on startup.
func DefaultProfessions() []Profession {
	return []Profession{
		{ID: 1, Name: "Artist", MinLevel: 1, Description: "Stickers and channel art"},
		{ID: 2, Name: "Photographer", MinLevel: 1, Description: "Photo reports and memes"},
		{ID: 3, Name: "Writer", MinLevel: 1, Description: "Posts and articles"},
		{ID: 4, Name: "Memesmith", MinLevel: 1, Description: "Entertainment content"},
		{ID: 5, Name: "Librarian", MinLevel: 3, Description: "File moderation"},
		{ID: 6, Name: "Tester", MinLevel: 5, Description: "Feature testing"},
	}
}
