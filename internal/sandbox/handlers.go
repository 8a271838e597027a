package sandbox

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/tournevent/casestack/pkg/casestack"
)

// Identifiers that simulate server faults, mirroring the fixtures clients
// are tested against.
var faults = map[string]int{
	"err":        http.StatusInternalServerError,
	"error":      http.StatusInternalServerError,
	"-1":         http.StatusInternalServerError,
	"badgateway": http.StatusBadGateway,
	"-2":         http.StatusBadGateway,
}

// maxBody bounds accepted request payloads.
const maxBody = 1 << 20

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	resource, ok := lookupResource(r.PathValue("resource"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown resource")
		return
	}
	id := r.PathValue("id")
	if fault(w, id) {
		return
	}

	raw, err := s.store.Get(resource.name, id)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, resource.name+" not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeWrapped(w, resource.name, raw)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	resource, ok := lookupResource(r.PathValue("resource"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown resource")
		return
	}
	if !resource.savable {
		writeError(w, http.StatusMethodNotAllowed, resource.name+" is read-only")
		return
	}
	id := r.PathValue("id")
	if fault(w, id) {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading body: "+err.Error())
		return
	}

	raw, err := s.store.Put(resource, id, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeWrapped(w, resource.name, raw)
}

func (s *Server) handleCustomFields(w http.ResponseWriter, r *http.Request) {
	parent := r.PathValue("type")
	if strings.HasPrefix(parent, "testerror") {
		writeError(w, http.StatusInternalServerError, "simulated failure")
		return
	}

	resource, ok := lookupResource(parent)
	if !ok || !resource.customizable {
		writeError(w, http.StatusNotFound, "no custom fields for "+parent)
		return
	}

	fields, err := s.store.CustomFields(parent)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeWrapped(w, resource.name, raw)
}

func (s *Server) handleShipmentStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if fault(w, id) {
		return
	}

	status, err := casestack.ParseShipmentStatus(r.PostFormValue("status"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = s.store.UpdateShipment(id, func(sh *casestack.Shipment) {
		sh.SetStatus(status)
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleShipmentReadOnly(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if fault(w, id) {
		return
	}

	readOnly, err := strconv.ParseBool(r.PostFormValue("readonly"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "readonly must be true or false")
		return
	}

	err = s.store.UpdateShipment(id, func(sh *casestack.Shipment) {
		sh.ReadOnly = readOnly
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func fault(w http.ResponseWriter, id string) bool {
	code, ok := faults[id]
	if !ok {
		return false
	}
	writeError(w, code, "simulated failure")
	return true
}

func writeWrapped(w http.ResponseWriter, root string, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]json.RawMessage{root: raw})
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// resourceLabel returns the resource segment of an API path for metrics.
func resourceLabel(r *http.Request) string {
	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/api/"), "/", 2)
	if _, ok := lookupResource(parts[0]); ok || parts[0] == "customfield" {
		return parts[0]
	}
	return "unknown"
}
