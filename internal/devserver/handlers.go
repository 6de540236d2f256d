package devserver

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"

	"workmap/internal/auth"
	"workmap/internal/common/log"
	"workmap/internal/contracts"
	"workmap/internal/devserver/store"
	"workmap/internal/domain/geo"
	"workmap/internal/domain/user"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

var dniPattern = regexp.MustCompile(`^\d{8}$`)

const minPasswordLen = 6

// Handlers carries the REST surface: account registration, login, the
// viewport nearby query, and the worker profile/posting endpoints.
type Handlers struct {
	users    *store.UserRepository
	profiles *store.ProfileRepository
	nearby   *store.PositionRepository
	tokens   *auth.Manager
	logger   *slog.Logger
}

func NewHandlers(users *store.UserRepository, profiles *store.ProfileRepository, positions *store.PositionRepository, tokens *auth.Manager, logger *slog.Logger) *Handlers {
	return &Handlers{users: users, profiles: profiles, nearby: positions, tokens: tokens, logger: logger}
}

// Register handles POST /usuarios.
func (h *Handlers) Register(c *gin.Context) {
	var req contracts.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Nombre == "" || req.Apellido == "" || req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nombre, apellido and email are required"})
		return
	}
	if !dniPattern.MatchString(req.DNI) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dni must be 8 digits"})
		return
	}
	if len(req.Password) < minPasswordLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 6 characters"})
		return
	}
	if _, err := user.ParseRole(req.Tipo); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tipo must be trabajador or cliente"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not process password"})
		return
	}

	u := &store.User{
		Nombre:       req.Nombre,
		Apellido:     req.Apellido,
		DNI:          req.DNI,
		Email:        req.Email,
		PasswordHash: string(hash),
		Tipo:         req.Tipo,
	}
	if err := h.users.Create(c.Request.Context(), u); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		log.Error(c.Request.Context(), h.logger, "register_fail", "Could not create user", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create user"})
		return
	}

	log.Info(c.Request.Context(), h.logger, "user_registered", "Registered "+u.Email, slog.Int64("user_id", u.ID))
	c.JSON(http.StatusCreated, gin.H{"id": u.ID})
}

// Login handles POST /login and issues the access token.
func (h *Handlers) Login(c *gin.Context) {
	var req contracts.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	u, err := h.users.ByEmail(c.Request.Context(), req.Email)
	if errors.Is(err, store.ErrUserNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err != nil {
		log.Error(c.Request.Context(), h.logger, "login_fail", "User lookup failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, _, err := h.tokens.IssueUserToken(u.ID, []string{u.Tipo})
	if err != nil {
		log.Error(c.Request.Context(), h.logger, "login_fail", "Token issue failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	log.Info(c.Request.Context(), h.logger, "user_logged_in", "Login "+u.Email, slog.Int64("user_id", u.ID))
	c.JSON(http.StatusOK, contracts.LoginResponse{Token: token})
}

// Nearby handles GET /usuarios/cerca?lat=&lng=&radiusKm=.
func (h *Handlers) Nearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng are required"})
		return
	}
	center := geo.Point{Lat: lat, Lng: lng}
	if err := center.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	radiusKm := 5.0
	if raw := c.Query("radiusKm"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil || r <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "radiusKm must be a positive number"})
			return
		}
		radiusKm = r
	}

	entities, err := h.nearby.Nearby(c.Request.Context(), center, radiusKm)
	if err != nil {
		log.Error(c.Request.Context(), h.logger, "nearby_query_fail", "Nearby query failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "nearby query failed"})
		return
	}

	wire := make([]contracts.NearbyEntityWire, 0, len(entities))
	for _, e := range entities {
		wire = append(wire, contracts.WireFromEntity(e))
	}
	c.JSON(http.StatusOK, wire)
}

// SaveProfile handles POST /perfiles for the authenticated worker. The
// row is upserted, so re-posting replaces the card.
func (h *Handlers) SaveProfile(c *gin.Context) {
	userID := c.GetInt64(ctxUserID)
	var req contracts.ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Titulo == "" || req.Descripcion == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "titulo and descripcion are required"})
		return
	}
	p := &store.Profile{
		UserID:      userID,
		Titulo:      req.Titulo,
		Descripcion: req.Descripcion,
		Telefono:    req.Telefono,
		FotoURL:     req.FotoURL,
	}
	if err := h.profiles.Save(c.Request.Context(), p); err != nil {
		log.Error(c.Request.Context(), h.logger, "profile_save_fail", "Could not save profile", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": userID})
}

// CreatePosting handles POST /publicaciones.
func (h *Handlers) CreatePosting(c *gin.Context) {
	userID := c.GetInt64(ctxUserID)
	var req contracts.PostingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Titulo == "" || req.Descripcion == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "titulo and descripcion are required"})
		return
	}
	p := &store.Posting{
		UserID:      userID,
		Titulo:      req.Titulo,
		Descripcion: req.Descripcion,
		Precio:      req.Precio,
	}
	if err := h.profiles.CreatePosting(c.Request.Context(), p); err != nil {
		log.Error(c.Request.Context(), h.logger, "posting_create_fail", "Could not create posting", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create posting"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": p.ID})
}

// ListPostings handles GET /publicaciones for the authenticated user.
func (h *Handlers) ListPostings(c *gin.Context) {
	userID := c.GetInt64(ctxUserID)
	postings, err := h.profiles.PostingsByUser(c.Request.Context(), userID)
	if err != nil {
		log.Error(c.Request.Context(), h.logger, "posting_list_fail", "Could not list postings", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list postings"})
		return
	}
	out := make([]gin.H, 0, len(postings))
	for _, p := range postings {
		out = append(out, gin.H{
			"id": p.ID, "titulo": p.Titulo, "descripcion": p.Descripcion, "precio": p.Precio,
		})
	}
	c.JSON(http.StatusOK, out)
}

const ctxUserID = "user_id"

// RequireAuth validates the bearer token and stores the caller's user ID
// in the gin context.
func (h *Handlers) RequireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}
	claims, err := h.tokens.ParseAndValidate(header[len(prefix):])
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
		return
	}
	c.Set(ctxUserID, userID)
	c.Next()
}
