package routes

import (
	"reflect"
)

// Page is a paginated response body. Its documentation shape is fixed and
// does not depend on these fields.
type Page[T any] struct {
	Content          []T      `json:"content"`
	Pageable         Pageable `json:"pageable"`
	TotalPages       int      `json:"totalPages"`
	TotalElements    int64    `json:"totalElements"`
	Last             bool     `json:"last"`
	Size             int      `json:"size"`
	Number           int      `json:"number"`
	NumberOfElements int      `json:"numberOfElements"`
	First            bool     `json:"first"`
	Empty            bool     `json:"empty"`
}

// PageElement reports the element type of the page.
func (Page[T]) PageElement() reflect.Type { return reflect.TypeFor[T]() }

// Response wraps a handler result with transport metadata. Documentation
// looks through it to T.
type Response[T any] struct {
	Status  int               `json:"-"`
	Headers map[string]string `json:"-"`
	Body    T                 `json:"body"`
}

// EnvelopePayload reports the wrapped payload type.
func (Response[T]) EnvelopePayload() reflect.Type { return reflect.TypeFor[T]() }

// NoContent is the result of handlers without a response body.
type NoContent struct{}

// EnvelopePayload reports no payload.
func (NoContent) EnvelopePayload() reflect.Type { return nil }

// Pageable is a page request. A handler input field of this type is
// documented as the page, size and sort query parameters.
type Pageable struct {
	Page int    `json:"page" schema:"page"`
	Size int    `json:"size" schema:"size"`
	Sort string `json:"sort" schema:"sort"`
}

// PageRequest marks Pageable as a page request.
func (Pageable) PageRequest() {}
