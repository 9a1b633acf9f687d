package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ErrNotFound is returned by id addressed session operations when no row
// has that id.
var ErrNotFound = errors.New("todo not found")

const notFoundDetail = "Todo not found"

// validationIssue is one entry of a 422 response body.
type validationIssue struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

type detail struct {
	Detail any `json:"detail"`
}

func bodyIssues(err error) []validationIssue {
	var (
		fieldErrs validator.ValidationErrors
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
	)
	switch {
	case errors.As(err, &fieldErrs):
		issues := make([]validationIssue, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			issue := validationIssue{
				Loc:  []string{"body", strings.ToLower(fe.Field())},
				Msg:  fmt.Sprintf("Field failed %q validation", fe.Tag()),
				Type: fe.Tag(),
			}
			if fe.Tag() == "required" {
				issue.Msg, issue.Type = "Field required", "missing"
			}
			issues = append(issues, issue)
		}
		return issues
	case errors.As(err, &typeErr):
		if typeErr.Field == "" {
			return []validationIssue{{
				Loc:  []string{"body"},
				Msg:  "Input should be a valid dictionary",
				Type: "model_attributes_type",
			}}
		}
		return []validationIssue{{
			Loc:  []string{"body", typeErr.Field},
			Msg:  "Input should be a valid " + jsonTypeName(typeErr.Type),
			Type: "type_error",
		}}
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return []validationIssue{{
			Loc:  []string{"body"},
			Msg:  "JSON decode error",
			Type: "json_invalid",
		}}
	default:
		return []validationIssue{{
			Loc:  []string{"body"},
			Msg:  err.Error(),
			Type: "value_error",
		}}
	}
}

// jsonTypeName names t the way a JSON client would see it.
func jsonTypeName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Pointer:
		return jsonTypeName(t.Elem())
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "list"
	default:
		return "dictionary"
	}
}

func abortInvalidBody(c *gin.Context, err error) {
	_ = c.Error(err).SetType(gin.ErrorTypeBind)
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, detail{Detail: bodyIssues(err)})
}

func abortInvalidID(c *gin.Context, err error) {
	_ = c.Error(err).SetType(gin.ErrorTypeBind)
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, detail{Detail: []validationIssue{{
		Loc:  []string{"path", "todo_id"},
		Msg:  "Input should be a valid integer, unable to parse string as an integer",
		Type: "int_parsing",
	}}})
}

// abortWithError maps err onto a response. Anything other than
// ErrNotFound is a 500.
func abortWithError(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, detail{Detail: notFoundDetail})
		return
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, detail{Detail: http.StatusText(http.StatusInternalServerError)})
}
