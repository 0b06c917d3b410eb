package response

import (
	"encoding/json"
	"net/http"

	"storefront-restock-api/pkg/apierror"
)

// Response is the success envelope.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// Meta summarizes a listing.
type Meta struct {
	Total int `json:"total"`
}

func write(w http.ResponseWriter, statusCode int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}

func encode(w http.ResponseWriter, statusCode int, resp Response) {
	body, err := json.Marshal(resp)
	if err != nil {
		Error(w, err)
		return
	}
	write(w, statusCode, append(body, '\n'))
}

// JSON sends data with the given status code.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	encode(w, statusCode, Response{Success: true, Data: data})
}

// List sends a listing together with its total count.
func List(w http.ResponseWriter, data interface{}, total int) {
	encode(w, http.StatusOK, Response{Success: true, Data: data, Meta: &Meta{Total: total}})
}

// Error sends err as an API error. Anything that is not an *apierror.Error
// is reported as a generic 500.
func Error(w http.ResponseWriter, err error) {
	apiErr := apierror.From(err)
	write(w, apiErr.StatusCode, apiErr.ToJSON())
}

// Created sends a 201 Created response with the created resource.
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// OK sends a 200 OK response.
func OK(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}
