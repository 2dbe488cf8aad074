package handlers

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"store-finder/middleware"
	"store-finder/models"
	"store-finder/services"
	"store-finder/utils/errors"
)

type Stores interface {
	Create(ctx context.Context, fields models.StoreFields) (*models.Store, error)
	Update(ctx context.Context, id primitive.ObjectID, fields models.StoreFields) (*models.Store, error)
	CheckOwner(ctx context.Context, id, userID primitive.ObjectID) (*models.Store, error)
	FindBySlug(ctx context.Context, slug string, includeReviews bool) (*models.Store, error)
	FindAll(ctx context.Context, page int, includeReviews bool) (*services.StorePage, error)
	FindByTag(ctx context.Context, tag string) (*services.TagPage, error)
	GetTagsList(ctx context.Context) ([]models.TagCount, error)
	GetTopStores(ctx context.Context) ([]models.TopStore, error)
	FindNear(ctx context.Context, lat, lng, maxDistance float64) ([]models.NearbyStore, error)
	Search(ctx context.Context, q string) ([]models.Store, error)
}

// PhotoProcessor stores an uploaded image and returns its filename.
type PhotoProcessor interface {
	Process(ctx context.Context, r io.Reader, contentType, originalName string) (string, error)
	Remove(name string) error
}

type StoreHandler struct {
	stores   Stores
	photos   PhotoProcessor
	maxBytes int64
}

func NewStoreHandler(stores Stores, photos PhotoProcessor, maxBytes int64) *StoreHandler {
	return &StoreHandler{stores: stores, photos: photos, maxBytes: maxBytes}
}

func (h *StoreHandler) ListStores(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	result, err := h.stores.FindAll(r.Context(), page, true)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *StoreHandler) CreateStore(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	fields, err := h.readStoreForm(w, r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	fields.Author = &userID

	store, err := h.stores.Create(r.Context(), fields)
	if err != nil {
		h.discardPhoto(fields)
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, store)
}

func (h *StoreHandler) EditStore(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	id, err := pathObjectID(r, "id")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	store, err := h.stores.CheckOwner(r.Context(), id, userID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, store)
}

func (h *StoreHandler) UpdateStore(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	id, err := pathObjectID(r, "id")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if _, err := h.stores.CheckOwner(r.Context(), id, userID); err != nil {
		middleware.WriteError(w, err)
		return
	}
	fields, err := h.readStoreForm(w, r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	store, err := h.stores.Update(r.Context(), id, fields)
	if err != nil {
		h.discardPhoto(fields)
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, store)
}

func (h *StoreHandler) GetStoreBySlug(w http.ResponseWriter, r *http.Request) {
	store, err := h.stores.FindBySlug(r.Context(), mux.Vars(r)["slug"], true)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if store == nil {
		middleware.WriteError(w, errors.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, store)
}

func (h *StoreHandler) GetStoresByTag(w http.ResponseWriter, r *http.Request) {
	result, err := h.stores.FindByTag(r.Context(), mux.Vars(r)["tag"])
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *StoreHandler) GetTopStores(w http.ResponseWriter, r *http.Request) {
	top, err := h.stores.GetTopStores(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stores": top})
}

func (h *StoreHandler) SearchStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.stores.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stores)
}

func (h *StoreHandler) MapStores(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	lat, err := strconv.ParseFloat(query.Get("lat"), 64)
	if err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}
	lng, err := strconv.ParseFloat(query.Get("lng"), 64)
	if err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}
	var maxDistance float64
	if raw := query.Get("maxDistance"); raw != "" {
		if maxDistance, err = strconv.ParseFloat(raw, 64); err != nil {
			middleware.WriteError(w, errors.ErrInvalidInput)
			return
		}
	}

	stores, err := h.stores.FindNear(r.Context(), lat, lng, maxDistance)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stores)
}

// readStoreForm maps a multipart or urlencoded store form onto StoreFields.
// Keys that are absent stay nil so updates leave them untouched. A rejected
// photo is dropped and the rest of the form still goes through.
func (h *StoreHandler) readStoreForm(w http.ResponseWriter, r *http.Request) (models.StoreFields, error) {
	var fields models.StoreFields
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		if !stderrors.Is(err, http.ErrNotMultipart) {
			return fields, errors.ErrInvalidInput
		}
		if err := r.ParseForm(); err != nil {
			return fields, errors.ErrInvalidInput
		}
	}
	form := r.PostForm

	if form.Has("name") {
		name := form.Get("name")
		fields.Name = &name
	}
	if form.Has("description") {
		description := form.Get("description")
		fields.Description = &description
	}
	if form.Has("tags") {
		fields.Tags = splitTags(form["tags"])
	}

	fields.Location, fields.Invalid = readLocation(form)

	photo, err := h.readPhoto(r)
	if err != nil {
		return fields, err
	}
	if photo != "" {
		fields.Photo = &photo
	}
	return fields, nil
}

func (h *StoreHandler) readPhoto(r *http.Request) (string, error) {
	if h.photos == nil || r.MultipartForm == nil {
		return "", nil
	}
	file, header, err := r.FormFile("photo")
	if stderrors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", errors.ErrInvalidInput
	}
	defer file.Close()

	name, err := h.photos.Process(r.Context(), file, header.Header.Get("Content-Type"), header.Filename)
	if stderrors.Is(err, errors.ErrUploadRejected) {
		logrus.WithField("filename", header.Filename).Warn("photo rejected, continuing without it")
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

// discardPhoto removes a photo stored for a request whose store was not saved.
func (h *StoreHandler) discardPhoto(fields models.StoreFields) {
	if fields.Photo == nil || h.photos == nil {
		return
	}
	if err := h.photos.Remove(*fields.Photo); err != nil {
		logrus.WithError(err).WithField("photo", *fields.Photo).Warn("failed to remove unused photo")
	}
}

// readLocation builds a point from location[address] and
// location[coordinates][0|1] (longitude, latitude). Values that are not
// numbers leave Coordinates unset and come back as field errors.
func readLocation(form url.Values) (*models.GeoPoint, []errors.FieldError) {
	const (
		addressKey = "location[address]"
		lngKey     = "location[coordinates][0]"
		latKey     = "location[coordinates][1]"
	)
	if !form.Has(addressKey) && !form.Has(lngKey) && !form.Has(latKey) {
		return nil, nil
	}
	point := &models.GeoPoint{Type: models.PointType, Address: form.Get(addressKey)}

	lngRaw, latRaw := strings.TrimSpace(form.Get(lngKey)), strings.TrimSpace(form.Get(latKey))
	if lngRaw == "" && latRaw == "" {
		return point, nil
	}
	var invalid []errors.FieldError
	lng, err := strconv.ParseFloat(lngRaw, 64)
	if err != nil && lngRaw != "" {
		invalid = append(invalid, errors.FieldError{Field: "lng", Message: "Longitude must be a number"})
	}
	lngOK := err == nil
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil && latRaw != "" {
		invalid = append(invalid, errors.FieldError{Field: "lat", Message: "Latitude must be a number"})
	}
	if lngOK && err == nil {
		point.Coordinates = []float64{lng, lat}
	}
	return point, invalid
}

// splitTags accepts repeated tags values as well as a comma separated list.
func splitTags(values []string) []string {
	tags := []string{}
	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags
}
