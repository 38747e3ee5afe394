package webutils

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/mogaika/wow_model_browser/validate"
)

func WriteFileHeaders(w http.ResponseWriter, name string, contentType string) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+name+"\"")
}

func WriteFile(w http.ResponseWriter, in io.Reader, name string) {
	WriteFileHeaders(w, name, "")
	io.Copy(w, in)
}

// WriteImage sends an inline image.
func WriteImage(w http.ResponseWriter, data []byte, mimeType string) {
	w.Header().Set("Content-Type", mimeType)
	WriteResult(w, data)
}

func WriteJson(w http.ResponseWriter, data interface{}) {
	res, err := json.Marshal(data)
	if err != nil {
		WriteError(w, err)
	} else {
		w.Header().Set("Content-Type", "application/json")
		WriteResult(w, res)
	}
}

func WriteJsonFile(w http.ResponseWriter, v interface{}, fileName string) {
	if data, err := json.MarshalIndent(v, "", "  "); err != nil {
		WriteError(w, errors.Wrapf(err, "Failed to marshal"))
	} else {
		WriteFile(w, bytes.NewReader(data), fileName+".json")
	}
}

// ReadFormFile returns the content of a posted multipart file.
func ReadFormFile(r *http.Request, formFileKey string) ([]byte, error) {
	if strings.ToUpper(r.Method) != "POST" {
		return nil, errors.Errorf("Invalid http method %q", r.Method)
	}

	f, _, err := r.FormFile(formFileKey)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to get file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read")
	}
	return data, nil
}

func WriteResult(w http.ResponseWriter, data []byte) {
	_, err := w.Write(data)
	if err != nil {
		log.Printf("Error when writing response: %v", err)
	}
}

// StatusOf maps an error kind to a response code.
func StatusOf(err error) int {
	kind, ok := validate.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case validate.KindIO:
		return http.StatusNotFound
	case validate.KindFormat:
		return http.StatusUnprocessableEntity
	case validate.KindPolicy:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func WriteError(w http.ResponseWriter, err error) {
	type jError struct {
		Error string `json:"error"`
		Kind  string `json:"kind,omitempty"`
	}
	je := &jError{Error: err.Error()}
	if kind, ok := validate.KindOf(err); ok {
		je.Kind = kind.String()
	}
	data, merr := json.Marshal(je)
	if merr == nil {
		log.Printf("HERR: %v", string(data))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(StatusOf(err))
		WriteResult(w, data)
	} else {
		log.Printf("Error marshaling error '%v': %v", err, merr)
	}
}
