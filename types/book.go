package types

// Book is a catalog entry. Books are independent of users; any
// authenticated account can read them, only admins can change them.
type Book struct {
	// ID is the unique identifier of the book.
	ID int `json:"id" db:"id"`

	// Title is the book's title.
	Title string `json:"title" db:"title"`

	// Author is the book's author.
	Author string `json:"author" db:"author"`

	// Pages is the page count.
	Pages int `json:"pages" db:"pages"`

	// Summary is a short description of the book.
	Summary string `json:"summary" db:"summary"`

	// Image references the book's cover: either an object-storage key
	// written by the cover upload endpoint or an external path supplied
	// by the client.
	Image string `json:"image" db:"image"`
}
