package handlers

import (
	"net/http"
	"sort"

	"lrs-tracker/internal/middleware"
	"lrs-tracker/internal/models"
	"lrs-tracker/internal/repository"
	"lrs-tracker/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sahilm/fuzzy"
)

// StoreHandler lists and shows LRS instances.
type StoreHandler struct {
	stores repository.StoreReader
}

func NewStoreHandler(stores repository.StoreReader) *StoreHandler {
	return &StoreHandler{stores: stores}
}

// storeTitles feeds store titles to the fuzzy matcher in folded form.
type storeTitles []*models.Store

func (s storeTitles) String(i int) string { return utils.SearchKey(s[i].Title) }
func (s storeTitles) Len() int            { return len(s) }

// ListStores godoc
// @Summary List LRS instances
// @Description Stores visible to the caller. With q, only titles fuzzily matching q are returned, best match first. Matching ignores case and accents.
// @Tags stores
// @Security ApiKeyAuth
// @Produce json
// @Param q query string false "Title search"
// @Success 200 {object} models.StoreListResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /stores [get]
func (h *StoreHandler) ListStores(c *gin.Context) {
	all, err := h.stores.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "server_error",
			Message: "Failed to list LRS instances",
		})
		return
	}

	visible := make([]*models.Store, 0, len(all))
	for _, s := range all {
		if c.GetString(middleware.ContextRole) == models.RoleSuper || s.ID.Hex() == c.GetString(middleware.ContextLrsID) {
			visible = append(visible, sanitizeStore(s))
		}
	}

	query := utils.SanitizeText(c.Query("q"))
	if query == "" {
		sort.SliceStable(visible, func(i, j int) bool {
			return utils.SearchKey(visible[i].Title) < utils.SearchKey(visible[j].Title)
		})
	} else {
		matches := fuzzy.FindFrom(utils.SearchKey(query), storeTitles(visible))
		found := make([]*models.Store, 0, len(matches))
		for _, m := range matches {
			found = append(found, visible[m.Index])
		}
		visible = found
	}

	c.JSON(http.StatusOK, models.StoreListResponse{
		Stores: visible,
		Total:  len(visible),
		Query:  query,
	})
}

// GetStore godoc
// @Summary Show an LRS instance
// @Tags stores
// @Security ApiKeyAuth
// @Produce json
// @Param lrsId path string true "LRS id"
// @Success 200 {object} models.Store
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /stores/{lrsId} [get]
func (h *StoreHandler) GetStore(c *gin.Context) {
	store := c.MustGet(middleware.ContextStore).(*models.Store)
	c.JSON(http.StatusOK, sanitizeStore(store))
}

// sanitizeStore returns a copy with markup stripped from the free-text fields.
func sanitizeStore(s *models.Store) *models.Store {
	out := *s
	out.Title = utils.SanitizeText(s.Title)
	out.Description = utils.SanitizeText(s.Description)
	return &out
}
