package api

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/segmentio/ksuid"

	"github.com/ssargent/savelayout/pkg/codec"
	"github.com/ssargent/savelayout/pkg/memmap"
)

const defaultHistoryLimit = 20

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Get the health status of the API
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	APIResponse
//	@Router			/health [get]
//	@Security		ApiKeyAuth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

func regionInfo(reg memmap.Region) RegionInfo {
	return RegionInfo{
		Name:     reg.Name,
		Layout:   reg.Schema.Name(),
		Base:     reg.Base,
		Size:     reg.Schema.Size(),
		Coverage: reg.Schema.Coverage(),
	}
}

// handleListRegions godoc
//
//	@Summary		List mapped regions
//	@Description	List every region of the memory map in address order
//	@Tags			regions
//	@Produce		json
//	@Success		200	{array}	RegionInfo
//	@Router			/regions [get]
//	@Security		ApiKeyAuth
func (s *Server) handleListRegions(w http.ResponseWriter, r *http.Request) {
	regions := s.accessor.Map().Regions()
	out := make([]RegionInfo, 0, len(regions))
	for _, reg := range regions {
		out = append(out, regionInfo(reg))
	}
	sendSuccess(w, out)
}

func (s *Server) lookupRegion(w http.ResponseWriter, r *http.Request) (memmap.Region, bool) {
	name := chi.URLParam(r, "name")
	reg, ok := s.accessor.Map().Lookup(name)
	if !ok {
		sendFailure(w, fmt.Errorf("%w: %s", memmap.ErrUnknownRegion, name))
		return memmap.Region{}, false
	}
	return reg, true
}

// readRecord decodes reg and records the decode outcome
func (s *Server) readRecord(reg memmap.Region) (codec.Record, error) {
	start := time.Now()
	rec, err := s.accessor.Read(reg.Name)
	s.metrics.RecordCodecOperation("decode", reg.Schema.Name(), err, time.Since(start))
	return rec, err
}

func (s *Server) sendRegion(w http.ResponseWriter, reg memmap.Region) {
	rec, err := s.readRecord(reg)
	if err != nil {
		sendFailure(w, err)
		return
	}
	sendSuccess(w, RegionRecord{RegionInfo: regionInfo(reg), Fields: rec})
}

// handleGetRegion godoc
//
//	@Summary		Decode a region
//	@Description	Read the region bytes and decode them with the region's layout
//	@Tags			regions
//	@Produce		json
//	@Param			name	path		string	true	"Region name"
//	@Success		200		{object}	RegionRecord
//	@Failure		404		{object}	APIResponse
//	@Failure		422		{object}	APIResponse
//	@Router			/regions/{name} [get]
//	@Security		ApiKeyAuth
func (s *Server) handleGetRegion(w http.ResponseWriter, r *http.Request) {
	reg, ok := s.lookupRegion(w, r)
	if !ok {
		return
	}
	s.sendRegion(w, reg)
}

// handleGetRaw godoc
//
//	@Summary		Read raw region bytes
//	@Tags			regions
//	@Produce		octet-stream
//	@Param			name	path		string	true	"Region name"
//	@Success		200		{string}	byte
//	@Failure		404		{object}	APIResponse
//	@Router			/regions/{name}/raw [get]
//	@Security		ApiKeyAuth
func (s *Server) handleGetRaw(w http.ResponseWriter, r *http.Request) {
	reg, ok := s.lookupRegion(w, r)
	if !ok {
		return
	}
	buf, err := s.accessor.ReadRaw(reg.Name)
	if err != nil {
		sendFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

// handlePutRegion godoc
//
//	@Summary		Write a full record
//	@Description	Encode a complete record over the region. Bytes outside every field are preserved.
//	@Tags			regions
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string	true	"Region name"
//	@Param			body	body		object	true	"Field values"
//	@Success		200		{object}	RegionRecord
//	@Failure		400		{object}	APIResponse
//	@Failure		404		{object}	APIResponse
//	@Failure		422		{object}	APIResponse
//	@Router			/regions/{name} [put]
//	@Security		ApiKeyAuth
func (s *Server) handlePutRegion(w http.ResponseWriter, r *http.Request) {
	reg, ok := s.lookupRegion(w, r)
	if !ok {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	rec, err := codec.RecordFromJSON(reg.Schema, body)
	if err != nil {
		sendFailure(w, err)
		return
	}

	start := time.Now()
	err = s.accessor.Write(reg.Name, rec)
	s.metrics.RecordCodecOperation("encode", reg.Schema.Name(), err, time.Since(start))
	s.metrics.RecordRegionWrite(reg.Name, err == nil)
	if err != nil {
		sendFailure(w, err)
		return
	}
	s.sendRegion(w, reg)
}

// handlePatchRegion godoc
//
//	@Summary		Change some fields
//	@Description	Merge the given fields into the decoded region and write it back
//	@Tags			regions
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string	true	"Region name"
//	@Param			body	body		object	true	"Field values"
//	@Success		200		{object}	RegionRecord
//	@Failure		400		{object}	APIResponse
//	@Failure		404		{object}	APIResponse
//	@Failure		422		{object}	APIResponse
//	@Router			/regions/{name} [patch]
//	@Security		ApiKeyAuth
func (s *Server) handlePatchRegion(w http.ResponseWriter, r *http.Request) {
	reg, ok := s.lookupRegion(w, r)
	if !ok {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	changes, err := codec.RecordFromJSON(reg.Schema, body)
	if err != nil {
		sendFailure(w, err)
		return
	}

	start := time.Now()
	rec, err := s.accessor.Update(reg.Name, changes.Values())
	s.metrics.RecordCodecOperation("encode", reg.Schema.Name(), err, time.Since(start))
	s.metrics.RecordRegionWrite(reg.Name, err == nil)
	if err != nil {
		sendFailure(w, err)
		return
	}
	sendSuccess(w, RegionRecord{RegionInfo: regionInfo(reg), Fields: rec})
}

// handleHistory godoc
//
//	@Summary		List journaled states
//	@Description	List earlier states of a region, newest first
//	@Tags			history
//	@Produce		json
//	@Param			name	path		string	true	"Region name"
//	@Param			limit	query		int		false	"Maximum number of entries"
//	@Success		200		{array}		HistoryEntry
//	@Failure		404		{object}	APIResponse
//	@Failure		501		{object}	APIResponse
//	@Router			/regions/{name}/history [get]
//	@Security		ApiKeyAuth
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		sendError(w, "Journal is disabled", http.StatusNotImplemented)
		return
	}
	reg, ok := s.lookupRegion(w, r)
	if !ok {
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			sendError(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := s.history.History(reg.Name, limit)
	if err != nil {
		sendFailure(w, err)
		return
	}

	out := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryEntry{
			ID:   e.ID.String(),
			Time: e.Time.UTC().Format(time.RFC3339),
			Size: len(e.Data),
		})
	}
	sendSuccess(w, out)
}

// handleRestore godoc
//
//	@Summary		Restore a journaled state
//	@Description	Write the bytes of a journal entry back over the region
//	@Tags			history
//	@Produce		json
//	@Param			name	path		string	true	"Region name"
//	@Param			id		path		string	true	"Entry id"
//	@Success		200		{object}	RegionRecord
//	@Failure		400		{object}	APIResponse
//	@Failure		404		{object}	APIResponse
//	@Failure		501		{object}	APIResponse
//	@Router			/regions/{name}/restore/{id} [post]
//	@Security		ApiKeyAuth
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		sendError(w, "Journal is disabled", http.StatusNotImplemented)
		return
	}
	reg, ok := s.lookupRegion(w, r)
	if !ok {
		return
	}

	id, err := ksuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, "Invalid entry id", http.StatusBadRequest)
		return
	}

	entry, err := s.history.Get(reg.Name, id)
	if err != nil {
		sendFailure(w, err)
		return
	}

	err = s.accessor.WriteRaw(reg.Name, entry.Data)
	s.metrics.RecordRegionWrite(reg.Name, err == nil)
	if err != nil {
		sendFailure(w, err)
		return
	}
	s.sendRegion(w, reg)
}

// handleListLayouts godoc
//
//	@Summary		List layouts
//	@Tags			layouts
//	@Produce		json
//	@Success		200	{object}	APIResponse
//	@Router			/layouts [get]
//	@Security		ApiKeyAuth
func (s *Server) handleListLayouts(w http.ResponseWriter, r *http.Request) {
	type layoutInfo struct {
		Name     string  `json:"name"`
		Size     int     `json:"size"`
		Fields   int     `json:"fields"`
		Coverage float64 `json:"coverage"`
	}

	out := make([]layoutInfo, 0, len(s.layouts))
	for _, sc := range s.layouts {
		out = append(out, layoutInfo{Name: sc.Name(), Size: sc.Size(), Fields: sc.Len(), Coverage: sc.Coverage()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	sendSuccess(w, out)
}

func (s *Server) lookupLayout(w http.ResponseWriter, r *http.Request) (*codec.Schema, bool) {
	name := chi.URLParam(r, "layout")
	sc, ok := s.layouts[name]
	if !ok {
		sendError(w, fmt.Sprintf("Unknown layout %q", name), http.StatusNotFound)
		return nil, false
	}
	return sc, true
}

// handleDecode godoc
//
//	@Summary		Decode a buffer
//	@Description	Decode the request body with the named layout
//	@Tags			layouts
//	@Accept			octet-stream
//	@Produce		json
//	@Param			layout	path		string	true	"Layout name"
//	@Param			body	body		[]byte	true	"Raw record bytes"
//	@Success		200		{object}	APIResponse
//	@Failure		400		{object}	APIResponse
//	@Failure		404		{object}	APIResponse
//	@Failure		422		{object}	APIResponse
//	@Router			/layouts/{layout}/decode [post]
//	@Security		ApiKeyAuth
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.lookupLayout(w, r)
	if !ok {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	start := time.Now()
	rec, err := s.accessor.Codec().Decode(sc, body)
	s.metrics.RecordCodecOperation("decode", sc.Name(), err, time.Since(start))
	if err != nil {
		sendFailure(w, err)
		return
	}
	sendSuccess(w, rec)
}

// handleEncode godoc
//
//	@Summary		Encode a record
//	@Description	Encode a complete record with the named layout into a zeroed buffer
//	@Tags			layouts
//	@Accept			json
//	@Produce		octet-stream
//	@Param			layout	path		string	true	"Layout name"
//	@Param			body	body		object	true	"Field values"
//	@Success		200		{string}	byte
//	@Failure		400		{object}	APIResponse
//	@Failure		404		{object}	APIResponse
//	@Failure		422		{object}	APIResponse
//	@Router			/layouts/{layout}/encode [post]
//	@Security		ApiKeyAuth
func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.lookupLayout(w, r)
	if !ok {
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	rec, err := codec.RecordFromJSON(sc, body)
	if err != nil {
		sendFailure(w, err)
		return
	}

	start := time.Now()
	buf, err := s.accessor.Codec().Encode(sc, rec)
	s.metrics.RecordCodecOperation("encode", sc.Name(), err, time.Since(start))
	if err != nil {
		sendFailure(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf)
}
