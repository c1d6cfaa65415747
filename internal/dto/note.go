package dto

// NoteForm is the form body for POST /note/new and POST /dm_post.
type NoteForm struct {
	Content string `form:"content"`
}
