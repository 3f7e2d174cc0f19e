// Package reports implements the reporting routes: the quarterly
// spreadsheet template download and the CSV export of visible entries,
// optionally delivered by email.
package reports

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/robsoninsights/robsoninsights/internal/config"
	"github.com/robsoninsights/robsoninsights/internal/db/controller/entry"
	"github.com/robsoninsights/robsoninsights/internal/db/models"
	"github.com/robsoninsights/robsoninsights/internal/mail"
	"github.com/robsoninsights/robsoninsights/internal/report"
	"github.com/robsoninsights/robsoninsights/internal/web/handler"
	"github.com/robsoninsights/robsoninsights/internal/web/middleware/auth"
)

// Path is the base path of the reports route group.
const Path = handler.APIPrefix + "/reports"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Service is the reports handler service.
type Service struct {
	cfg    *config.Config
	db     *gorm.DB
	mailer mail.Mailer
}

// Handler is the reports handler.
var Handler = Service{}

// Init initializes the reports handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, mailer mail.Mailer) {
	if app == nil || cfg == nil || db == nil || mailer == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.cfg = cfg
	s.mailer = mailer

	app.Get(Path+"/template", s.Template)
	app.Get(Path+"/export", s.Export)
}

// Template serves the blank quarterly workbook for the current fiscal year.
func (s *Service) Template(c *fiber.Ctx) error {
	f, err := report.QuarterlyTemplate(time.Now())
	if err != nil {
		return handler.Err(c, err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return handler.Err(c, err)
	}

	filename := fmt.Sprintf("quarterly_template_%d.xlsx", report.FiscalYearStart(time.Now()).Year())

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)

	return c.SendStream(bytes.NewReader(buf.Bytes()), buf.Len())
}

// Export streams the caller's visible entries as CSV. With filter_id or
// group_id the scope narrows to that selector; with an email query
// parameter the file is mailed as an attachment instead of downloaded.
func (s *Service) Export(c *fiber.Ctx) error {
	user := auth.CurrentUser(c)

	entries, err := s.exportScope(c, user.ID)
	if err != nil {
		return handler.Err(c, err)
	}

	var buf bytes.Buffer
	if err = report.WriteCSV(&buf, entries); err != nil {
		return handler.Err(c, err)
	}

	filename := "entries_" + time.Now().Format("2006-01-02") + ".csv"

	if to := c.Query("email"); to != "" {
		err = s.mailer.SendAttachment(to, "Your entries export", "The requested export is attached.", filename, buf.Bytes())
		if err != nil {
			log.Error().Err(err).Str("to", to).Msg("failed to send export email")
			return fiber.NewError(fiber.StatusBadGateway, "failed to send export email")
		}

		return c.JSON(fiber.Map{"detail": "export sent to " + to})
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)

	return c.Send(buf.Bytes())
}

func (s *Service) exportScope(c *fiber.Ctx, userID uint64) ([]models.Entry, error) {
	if raw := c.Query("filter_id"); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return nil, err
		}

		return entry.ListBySelector(s.db, userID, entry.Selector{Kind: entry.SelectorFilter, ID: id})
	}

	if raw := c.Query("group_id"); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return nil, err
		}

		return entry.ListBySelector(s.db, userID, entry.Selector{Kind: entry.SelectorGroup, ID: id})
	}

	return entry.ListVisible(s.db, userID)
}

func parseID(raw string) (uint, error) {
	var id uint

	if _, err := fmt.Sscanf(raw, "%d", &id); err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	return id, nil
}
