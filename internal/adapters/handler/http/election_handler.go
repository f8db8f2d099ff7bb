package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/vncsmyrnk/elections/internal/core/domain"
	"github.com/vncsmyrnk/elections/internal/core/ports"
)

type ElectionHandler struct {
	service ports.ElectionService
}

func NewElectionHandler(service ports.ElectionService) *ElectionHandler {
	return &ElectionHandler{
		service: service,
	}
}

type electionDetailsRequest struct {
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Location       string     `json:"location"`
	LocationMapURL string     `json:"location_map_url"`
	Province       string     `json:"province"`
	District       string     `json:"district"`
	OpenRegister   *time.Time `json:"open_register"`
	CloseRegister  *time.Time `json:"close_register"`
	OpenVoting     time.Time  `json:"open_voting"`
	CloseVoting    time.Time  `json:"close_voting"`
}

func (req electionDetailsRequest) details() domain.ElectionDetails {
	return domain.ElectionDetails{
		Name:           req.Name,
		Description:    req.Description,
		Location:       req.Location,
		LocationMapURL: req.LocationMapURL,
		Province:       req.Province,
		District:       req.District,
		OpenRegister:   req.OpenRegister,
		CloseRegister:  req.CloseRegister,
		OpenVoting:     req.OpenVoting,
		CloseVoting:    req.CloseVoting,
	}
}

type createElectionRequest struct {
	Type domain.ElectionType `json:"type"`
	Mode domain.ElectionMode `json:"mode"`
	electionDetailsRequest
}

type publishElectionRequest struct {
	PublishDate *time.Time `json:"publish_date"`
}

type updateElectionKeysRequest struct {
	Status        domain.KeysStatus `json:"status"`
	PublicEncrypt string            `json:"publicEncrypt"`
	PublicSigning string            `json:"publicSigning"`
}

// CreateElection godoc
// @Summary      Creates an election
// @Description  Creates the election keys in the key service, then stores the election as a draft.
// @Tags         elections
// @Accept       json
// @Produce      json
// @Success      201
// @Failure      400
// @Failure      502
// @Router       /admin/elections [post]
func (h *ElectionHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	var req createElectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	election, err := h.service.CreateElection(r.Context(), ports.CreateElectionInput{
		Type:    req.Type,
		Mode:    req.Mode,
		Details: req.details(),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, election)
}

func (h *ElectionHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	election, err := h.service.GetElection(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, election)
}

// ListElections godoc
// @Summary      Lists elections
// @Description  Newest first. Filters: type, cancelled, published, q (name search). Pagination: page, limit (max 100).
// @Tags         elections
// @Produce      json
// @Success      200
// @Router       /admin/elections [get]
func (h *ElectionHandler) ListElections(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := ports.ListElectionsInput{
		Filter: domain.ElectionFilter{
			Type:  domain.ElectionType(q.Get("type")),
			Query: q.Get("q"),
		},
		Pagination: pagination(r),
	}
	var ok bool
	if input.Filter.Cancelled, ok = boolQuery(w, r, "cancelled"); !ok {
		return
	}
	if input.Filter.Published, ok = boolQuery(w, r, "published"); !ok {
		return
	}

	elections, err := h.service.ListElections(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, elections)
}

func (h *ElectionHandler) UpdateElection(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req electionDetailsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	election, err := h.service.UpdateElection(r.Context(), id, ports.UpdateElectionInput{Details: req.details()})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, election)
}

func (h *ElectionHandler) DeleteElection(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteElection(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PublishElection godoc
// @Summary      Publishes an election
// @Description  Makes a draft election visible. Onsite elections have their keys destroyed on publish.
// @Tags         elections
// @Accept       json
// @Produce      json
// @Success      200
// @Failure      412
// @Router       /admin/elections/{id}/publish [post]
func (h *ElectionHandler) PublishElection(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req publishElectionRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	var publishDate time.Time
	if req.PublishDate != nil {
		publishDate = *req.PublishDate
	}
	election, err := h.service.PublishElection(r.Context(), id, publishDate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, election)
}

func (h *ElectionHandler) CancelElection(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	election, err := h.service.CancelElection(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, election)
}

func (h *ElectionHandler) ChangeElectionSecureMode(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	election, err := h.service.ChangeElectionSecureMode(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, election)
}

func (h *ElectionHandler) SyncElectionKeys(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	election, err := h.service.SyncElectionKeys(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, election)
}

// UpdateElectionKeys godoc
// @Summary      Key service callback for created keys
// @Tags         internal
// @Accept       json
// @Produce      json
// @Success      200
// @Failure      401
// @Router       /internal/elections/{id}/keys [post]
func (h *ElectionHandler) UpdateElectionKeys(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req updateElectionKeysRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	election, err := h.service.UpdateElectionKeys(r.Context(), id, ports.UpdateElectionKeysInput{
		Status:              req.Status,
		EncryptionPublicKey: req.PublicEncrypt,
		SigningPublicKey:    req.PublicSigning,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, election)
}

func pagination(r *http.Request) domain.Pagination {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return domain.Pagination{Page: page, Limit: limit}.Normalize()
}

func boolQuery(w http.ResponseWriter, r *http.Request, name string) (*bool, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		writeError(w, domain.NewError(domain.CodeValidation, "invalid "+name+" filter"))
		return nil, false
	}
	return &v, true
}
