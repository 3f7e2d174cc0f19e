// Package entries implements the entry routes: submission, visibility
// scoped listing, date range filtering, selector queries and bulk upload.
package entries

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/robsoninsights/robsoninsights/internal/config"
	"github.com/robsoninsights/robsoninsights/internal/db/controller/entry"
	"github.com/robsoninsights/robsoninsights/internal/db/models"
	"github.com/robsoninsights/robsoninsights/internal/ingest"
	"github.com/robsoninsights/robsoninsights/internal/web/handler"
	"github.com/robsoninsights/robsoninsights/internal/web/middleware/auth"
)

// Path is the base path of the entries route group.
const Path = handler.APIPrefix + "/entries"

// dateLayout is the wire format of entry dates.
const dateLayout = "2006-01-02"

// Service is the entries handler service.
type Service struct {
	cfg       *config.Config
	db        *gorm.DB
	validator *validator.Validate
}

// Handler is the entries handler.
var Handler = Service{}

type createRequest struct {
	Classification string `json:"classification" validate:"required"`
	CSection       bool   `json:"csection"`
	Date           string `json:"date"` // optional, YYYY-MM-DD
}

type entryResponse struct {
	ID             uint   `json:"id"`
	Username       string `json:"username"`
	Classification string `json:"classification"`
	CSection       bool   `json:"csection"`
	Date           string `json:"date"`
}

type entryGroupsResponse struct {
	entryResponse
	Groups []string `json:"groups"`
}

func toResponse(e *models.Entry) entryResponse {
	out := entryResponse{
		ID:             e.ID,
		Classification: e.Classification,
		CSection:       e.CSection,
		Date:           e.Date.Format(dateLayout),
	}

	if e.User != nil {
		out.Username = e.User.Username
	}

	return out
}

func toGroupsResponse(e *models.Entry) entryGroupsResponse {
	out := entryGroupsResponse{
		entryResponse: toResponse(e),
		Groups:        make([]string, 0, len(e.Groups)),
	}

	for _, g := range e.Groups {
		out.Groups = append(out.Groups, g.Name)
	}

	return out
}

func toGroupsResponses(entries []models.Entry) []entryGroupsResponse {
	out := make([]entryGroupsResponse, 0, len(entries))
	for i := range entries {
		out = append(out, toGroupsResponse(&entries[i]))
	}

	return out
}

// Init initializes the entries handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.validator = validator.New()

	app.Get(Path, s.List)
	app.Post(Path, s.Create)
	app.Post(Path+"/upload", s.Upload)
	app.Get(Path+"/:id", s.Get)
}

// List returns entries visible to the caller. Query parameters narrow
// the result: start/end for a date range, filter_id or group_id for a
// selector scope.
func (s *Service) List(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	if c.Query("start") != "" || c.Query("end") != "" {
		return s.listByDateRange(c)
	}

	if c.Query("filter_id") != "" {
		return s.listBySelector(c, entry.SelectorFilter, c.Query("filter_id"))
	}

	if c.Query("group_id") != "" {
		return s.listBySelector(c, entry.SelectorGroup, c.Query("group_id"))
	}

	visible, err := entry.ListVisible(s.db, user.ID)
	if err != nil {
		return handler.Err(c, err)
	}

	return c.JSON(toGroupsResponses(visible))
}

// Create records a single entry tagged with every group the caller
// belongs to.
func (s *Service) Create(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.validator.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var date *time.Time

	if req.Date != "" {
		parsed, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		}

		date = &parsed
	}

	e, err := entry.Create(s.db, user.ID, req.Classification, req.CSection, date)
	if err != nil {
		return handler.Err(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toGroupsResponse(e))
}

// Get returns a single entry the caller may read.
func (s *Service) Get(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid entry id")
	}

	e, err := entry.Get(s.db, user.ID, uint(id))
	if err != nil {
		return handler.Err(c, err)
	}

	return c.JSON(toGroupsResponse(e))
}

// Upload ingests a quarterly spreadsheet (.csv or .xlsx) as a batch of
// entries. The whole file is persisted or nothing is.
func (s *Service) Upload(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing file upload")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unreadable file upload")
	}
	defer file.Close()

	var created int

	switch strings.ToLower(filepath.Ext(fileHeader.Filename)) {
	case ".csv":
		created, err = ingest.UploadCSV(s.db, user.ID, file)
	case ".xlsx":
		created, err = ingest.UploadXLSX(s.db, user.ID, file)
	default:
		return fiber.NewError(fiber.StatusBadRequest, "unsupported file type, expected .csv or .xlsx")
	}

	if err != nil {
		return handler.Err(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"created": created})
}

func (s *Service) listByDateRange(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	start, err := parseOptionalDate(c.Query("start"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid start date, expected YYYY-MM-DD")
	}

	end, err := parseOptionalDate(c.Query("end"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid end date, expected YYYY-MM-DD")
	}

	found, err := entry.FilterByDateRange(s.db, user.ID, start, end)
	if err != nil {
		return handler.Err(c, err)
	}

	return c.JSON(toGroupsResponses(found))
}

func (s *Service) listBySelector(c *fiber.Ctx, kind entry.SelectorKind, raw string) error {
	user := auth.CurrentUser(c)

	id, err := parseUint(raw)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid selector id")
	}

	found, err := entry.ListBySelector(s.db, user.ID, entry.Selector{Kind: kind, ID: id})
	if err != nil {
		return handler.Err(c, err)
	}

	// A group scoped listing already names its group, so the groups field
	// is left out of that form.
	if kind == entry.SelectorGroup {
		out := make([]entryResponse, 0, len(found))
		for i := range found {
			out = append(out, toResponse(&found[i]))
		}

		return c.JSON(out)
	}

	return c.JSON(toGroupsResponses(found))
}

func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}

	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func parseUint(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	return uint(id), nil
}
