package main

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-gonic/gin"
)

const (
	apiTitle   = "Todo API"
	apiVersion = "0.0.1"

	todoSchemaRef    = "#/components/schemas/Todo"
	updateSchemaRef  = "#/components/schemas/TodoUpdate"
	messageSchemaRef = "#/components/schemas/Message"
	detailSchemaRef  = "#/components/schemas/NotFound"
)

func todoSchema() *openapi3.Schema {
	schema := openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewInt64Schema()).
		WithProperty("content", openapi3.NewStringSchema())
	schema.Required = []string{"content"}
	return schema
}

// todoUpdateSchema has no required fields: absent fields are left as they
// are.
func todoUpdateSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewInt64Schema()).
		WithProperty("content", openapi3.NewStringSchema())
}

func objectWith(field string) *openapi3.Schema {
	return openapi3.NewObjectSchema().WithProperty(field, openapi3.NewStringSchema())
}

func jsonResponse(description, ref string, schema *openapi3.Schema) *openapi3.ResponseRef {
	return &openapi3.ResponseRef{Value: openapi3.NewResponse().
		WithDescription(description).
		WithJSONSchemaRef(openapi3.NewSchemaRef(ref, schema))}
}

func jsonBody(ref string, schema *openapi3.Schema) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
		WithRequired(true).
		WithJSONSchemaRef(openapi3.NewSchemaRef(ref, schema))}
}

func operation(id, summary string, responses ...openapi3.NewResponsesOption) *openapi3.Operation {
	return &openapi3.Operation{
		OperationID: id,
		Summary:     summary,
		Responses:   openapi3.NewResponses(responses...),
	}
}

// newAPIDoc describes the todo endpoints. publicURL is advertised as the
// server clients should call.
func newAPIDoc(publicURL string) *openapi3.T {
	todoResp := jsonResponse("The todo item", todoSchemaRef, todoSchema())
	notFound := openapi3.WithStatus(http.StatusNotFound,
		jsonResponse("No todo with that id", detailSchemaRef, nil))
	invalid := openapi3.WithStatus(http.StatusUnprocessableEntity,
		&openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("Validation Error")})
	message := func(description string) openapi3.NewResponsesOption {
		return openapi3.WithStatus(http.StatusOK, jsonResponse(description, messageSchemaRef, nil))
	}

	create := operation("create_todo", "Create a todo", openapi3.WithStatus(http.StatusOK, todoResp), invalid)
	create.RequestBody = jsonBody(todoSchemaRef, todoSchema())

	list := operation("read_todos", "List all todos", openapi3.WithStatus(http.StatusOK,
		&openapi3.ResponseRef{Value: openapi3.NewResponse().
			WithDescription("Every todo item").
			WithJSONSchema(&openapi3.Schema{
				Type:  &openapi3.Types{openapi3.TypeArray},
				Items: openapi3.NewSchemaRef(todoSchemaRef, nil),
			})}))

	update := operation("update_todo", "Update a todo", openapi3.WithStatus(http.StatusOK, todoResp), notFound, invalid)
	update.RequestBody = jsonBody(updateSchemaRef, todoUpdateSchema())
	patch := operation("partial_update_todo", "Partially update a todo", openapi3.WithStatus(http.StatusOK, todoResp), notFound, invalid)
	patch.RequestBody = jsonBody(updateSchemaRef, todoUpdateSchema())

	return &openapi3.T{
		OpenAPI: "3.0.3",
		Info:    &openapi3.Info{Title: apiTitle, Version: apiVersion},
		Servers: openapi3.Servers{
			{URL: publicURL, Description: "Development Server"},
		},
		Paths: openapi3.NewPaths(
			openapi3.WithPath("/", &openapi3.PathItem{
				Get: operation("read_root", "Greeting", openapi3.WithStatus(http.StatusOK,
					&openapi3.ResponseRef{Value: openapi3.NewResponse().
						WithDescription("Fixed greeting").
						WithJSONSchema(objectWith("Hello"))})),
			}),
			openapi3.WithPath("/todos/", &openapi3.PathItem{
				Post:   create,
				Get:    list,
				Delete: operation("delete_all_todos", "Delete every todo", message("All todos deleted")),
			}),
			openapi3.WithPath("/todos/{todo_id}/", &openapi3.PathItem{
				Parameters: openapi3.Parameters{
					{Value: openapi3.NewPathParameter("todo_id").WithSchema(openapi3.NewInt64Schema())},
				},
				Get:    operation("read_todo_by_id", "Read a todo", openapi3.WithStatus(http.StatusOK, todoResp), notFound, invalid),
				Put:    update,
				Patch:  patch,
				Delete: operation("delete_todo_by_id", "Delete a todo", message("Todo deleted"), notFound, invalid),
			}),
		),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{
				"Todo":       openapi3.NewSchemaRef("", todoSchema()),
				"TodoUpdate": openapi3.NewSchemaRef("", todoUpdateSchema()),
				"Message":    openapi3.NewSchemaRef("", objectWith("message")),
				"NotFound":   openapi3.NewSchemaRef("", objectWith("detail")),
			},
		},
	}
}

// OpenAPIHandler serves doc as JSON.
func OpenAPIHandler(doc *openapi3.T) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, doc)
	}
}
