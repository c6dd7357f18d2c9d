package api

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/gmsas95/docscan/internal/errors"
	"github.com/gmsas95/docscan/internal/export"
	"github.com/gmsas95/docscan/internal/extract"
	"github.com/gmsas95/docscan/internal/ocr"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"version":   Version,
		"timestamp": time.Now().Unix(),
		"metrics":   s.metrics.Snapshot(),
	})
}

func (s *Server) handleExtract(c *fiber.Ctx) error {
	var req struct {
		Text  string `json:"text"`
		Index *int   `json:"index"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request")
	}

	index := 1
	if req.Index != nil {
		index = *req.Index
	}
	if index < 1 {
		return badRequest("index must be at least 1")
	}
	if err := s.validator.Validate(req.Text); err != nil {
		return err
	}

	rec := s.extractor.Extract(req.Text, index)
	s.metrics.RecordRecord(rec)
	return c.JSON(rec)
}

func (s *Server) handleExtractBatch(c *fiber.Ctx) error {
	var req struct {
		Texts []string `json:"texts"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request")
	}

	if err := s.validator.ValidateBatch(req.Texts); err != nil {
		return err
	}

	records := s.extractor.ExtractBatch(req.Texts)
	for _, rec := range records {
		s.metrics.RecordRecord(rec)
	}
	return c.JSON(fiber.Map{"records": records})
}

func (s *Server) handleScan(c *fiber.Ctx) error {
	if s.scanner == nil {
		return apperrors.WrapAs(apperrors.ErrOCRUnavailable, fmt.Errorf("no OCR provider configured"))
	}

	form, err := c.MultipartForm()
	if err != nil {
		return badRequest("expected multipart form with images")
	}

	files := form.File["images"]
	images := make([]ocr.Image, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return badRequest("unreadable upload " + fh.Filename)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return badRequest("unreadable upload " + fh.Filename)
		}
		images = append(images, ocr.Image{Name: fh.Filename, Data: data})
	}

	result, err := s.scanner.Scan(c.UserContext(), images)
	if err != nil {
		return err
	}

	if s.store != nil {
		if _, err := s.store.SaveResult(result, "api"); err != nil {
			s.logger.Error("Failed to save scan", zap.String("batch_id", result.ID), zap.Error(err))
		}
	}

	return c.JSON(result)
}

func (s *Server) handleExportWhatsApp(c *fiber.Ctx) error {
	var req struct {
		Records []extract.DocumentRecord `json:"records"`
		BatchID string                   `json:"batch_id"`
		Number  string                   `json:"number"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request")
	}

	records := req.Records
	if req.BatchID != "" {
		if s.store == nil {
			return apperrors.WrapAs(apperrors.ErrBatchNotFound, fmt.Errorf("history is disabled"))
		}
		sb, err := s.store.GetBatch(req.BatchID)
		if err != nil {
			return err
		}
		records = sb.DocumentRecords()
	}

	msg, err := s.exporter.WhatsApp(records, req.Number)
	if err != nil {
		return err
	}
	return c.JSON(msg)
}

func (s *Server) handleListBatches(c *fiber.Ctx) error {
	if s.store == nil {
		return c.JSON([]any{})
	}
	batches, err := s.store.ListBatches(c.QueryInt("limit", 20))
	if err != nil {
		return err
	}
	return c.JSON(batches)
}

func (s *Server) handleGetBatch(c *fiber.Ctx) error {
	if s.store == nil {
		return apperrors.ErrBatchNotFound
	}
	sb, err := s.store.GetBatch(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(sb)
}

func (s *Server) handleBatchXLSX(c *fiber.Ctx) error {
	if s.store == nil {
		return apperrors.ErrBatchNotFound
	}
	sb, err := s.store.GetBatch(c.Params("id"))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, sb.DocumentRecords()); err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Attachment(fmt.Sprintf("docscan-%s.xlsx", sb.ID))
	return c.Send(buf.Bytes())
}
