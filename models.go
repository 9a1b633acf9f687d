package main

// Todo is the wire representation of a todo item.
type Todo struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
}

// todoCreate is the body of POST /todos/. A client supplied id is accepted
// and discarded; the database assigns one.
type todoCreate struct {
	ID      *int64  `json:"id"`
	Content *string `json:"content" binding:"required"`
}

// todoUpdate is the body of PUT and PATCH. Nil fields were not present in
// the request and are left untouched.
type todoUpdate struct {
	ID      *int64  `json:"id"`
	Content *string `json:"content"`
}

// todoRow mirrors a row of the todo table.
type todoRow struct {
	id      int64
	content string
}

func (r todoRow) toTodo() Todo {
	return Todo{ID: r.id, Content: r.content}
}

func fromTodo(t Todo) todoRow {
	return todoRow{id: t.ID, content: t.Content}
}

type Message struct {
	Message string `json:"message"`
}
