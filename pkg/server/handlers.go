package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"retail-rfm/pkg/apperr"
	"retail-rfm/pkg/cache"
	"retail-rfm/pkg/calculator"
	"retail-rfm/pkg/logger"
	"retail-rfm/pkg/models"
	"retail-rfm/pkg/rfm"
	"retail-rfm/pkg/stats"
)

const (
	defaultLimit = 50
	maxLimit     = 10000
)

type datasetResponse struct {
	ID       string                `json:"id"`
	Cached   bool                  `json:"cached"`
	LoadedAt time.Time             `json:"loaded_at"`
	Schema   models.Schema         `json:"schema"`
	Report   models.CleaningReport `json:"report"`
}

func newDatasetResponse(ds models.Dataset, cached bool) datasetResponse {
	return datasetResponse{
		ID:       ds.ID,
		Cached:   cached,
		LoadedAt: ds.LoadedAt,
		Schema:   ds.Table.Schema,
		Report:   ds.Report,
	}
}

func (s *Server) upload(c *gin.Context) {
	limit := int64(s.opts.MaxUploadMB) << 20
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	data, err := readUpload(c)
	if HandleError(c, err) {
		return
	}
	s.ingest(c, data)
}

func (s *Server) sample(c *gin.Context) {
	if s.opts.SamplePath == "" {
		HandleError(c, apperr.NotFound("no sample dataset configured"))
		return
	}
	data, err := os.ReadFile(s.opts.SamplePath)
	if err != nil {
		HandleError(c, apperr.Wrap(apperr.KindInternal, "read sample dataset", err))
		return
	}
	s.ingest(c, data)
}

// ingest ne nettoie qu'une fois chaque contenu distinct et le met en cache.
func (s *Server) ingest(c *gin.Context, data []byte) {
	ctx := c.Request.Context()
	id := cache.Key(data)

	if ds, ok, err := s.store.Get(ctx, id); err != nil {
		logger.Warn(ctx, "cache lookup failed", "dataset_id", id, "error", err)
	} else if ok {
		c.JSON(http.StatusOK, newDatasetResponse(ds, true))
		return
	}

	ds, err := calculator.LoadBytes(data, s.opts.Pipeline)
	if HandleError(c, err) {
		return
	}
	if err := s.store.Put(ctx, ds); err != nil {
		HandleError(c, apperr.Wrap(apperr.KindInternal, "cache dataset", err))
		return
	}

	ctx = logger.WithDataset(ctx, ds.ID)
	logger.Info(ctx, "dataset loaded",
		"raw_rows", ds.Report.RawRows,
		"cleaned_rows", ds.Report.CleanedRows,
		"dropped_rows", ds.Report.DroppedRows,
	)
	c.JSON(http.StatusCreated, newDatasetResponse(ds, false))
}

func readUpload(c *gin.Context) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if mediaType == "multipart/form-data" {
		fh, err := c.FormFile("file")
		if err != nil {
			if isTooLarge(err) {
				return nil, err
			}
			return nil, apperr.BadRequest("multipart upload requires a \"file\" field")
		}
		f, err := fh.Open()
		if err != nil {
			return nil, apperr.Wrap(apperr.KindBadRequest, "open upload", err)
		}
		defer f.Close()
		return io.ReadAll(f)
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, apperr.BadRequest("empty upload")
	}
	return data, nil
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func (s *Server) dataset(c *gin.Context) (models.Dataset, bool) {
	id := c.Param("id")
	ds, ok, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, apperr.Wrap(apperr.KindInternal, "cache lookup", err))
		return models.Dataset{}, false
	}
	if !ok {
		HandleError(c, apperr.NotFound(fmt.Sprintf("dataset %s not found", id)))
		return models.Dataset{}, false
	}
	return ds, true
}

func (s *Server) report(c *gin.Context) {
	ds, ok := s.dataset(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newDatasetResponse(ds, true))
}

func (s *Server) rows(c *gin.Context) {
	ds, ok := s.dataset(c)
	if !ok {
		return
	}
	limit, err := queryInt(c, "limit", defaultLimit, 1, maxLimit)
	if HandleError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rows":  ds.Table.Head(limit).Rows,
		"total": ds.Table.Len(),
	})
}

func (s *Server) quality(c *gin.Context) {
	ds, ok := s.dataset(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, stats.Quality(ds.Table.Head(s.opts.Pipeline.StatsMaxRows)))
}

func (s *Server) overview(c *gin.Context) {
	ds, ok := s.dataset(c)
	if !ok {
		return
	}
	opts := calculator.StatsOptions(s.opts.Pipeline)
	if c.Query("top") != "" {
		top, err := queryInt(c, "top", opts.TopCountries, 1, 100)
		if HandleError(c, err) {
			return
		}
		opts.TopCountries, opts.TopProducts = top, top
	}

	d := stats.BuildDashboard(ds.Table, opts)
	monthly, err := stats.WindowMonths(d.Monthly, c.Query("from"), c.Query("to"))
	if err != nil {
		HandleError(c, apperr.Wrap(apperr.KindBadRequest, "invalid month window", err))
		return
	}
	d.Monthly = monthly
	c.JSON(http.StatusOK, d)
}

func (s *Server) score(c *gin.Context, ds models.Dataset) ([]models.CustomerRFM, bool) {
	customers, err := rfm.Compute(ds.Table, rfm.Options{Workers: s.opts.Pipeline.RFMWorkers})
	if HandleError(c, err) {
		return nil, false
	}
	return customers, true
}

func (s *Server) customers(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultLimit, 1, maxLimit)
	if HandleError(c, err) {
		return
	}
	ds, ok := s.dataset(c)
	if !ok {
		return
	}
	customers, ok := s.score(c, ds)
	if !ok {
		return
	}
	head := customers
	if len(head) > limit {
		head = head[:limit]
	}
	c.JSON(http.StatusOK, gin.H{"rows": head, "total": len(customers)})
}

func (s *Server) segments(c *gin.Context) {
	ds, ok := s.dataset(c)
	if !ok {
		return
	}
	customers, ok := s.score(c, ds)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"segments": rfm.Summarize(customers)})
}

func (s *Server) export(c *gin.Context) {
	if len(s.opts.Sinks) == 0 {
		HandleError(c, apperr.BadRequest("no export destination configured"))
		return
	}
	ds, ok := s.dataset(c)
	if !ok {
		return
	}
	customers, ok := s.score(c, ds)
	if !ok {
		return
	}
	a := calculator.Analysis{Dataset: ds, Customers: customers, Segments: rfm.Summarize(customers)}

	ctx := logger.WithDataset(c.Request.Context(), ds.ID)
	if err := calculator.Deliver(ctx, a.Delivery(time.Now()), s.opts.Sinks...); err != nil {
		HandleError(c, apperr.Wrap(apperr.KindInternal, "export failed", err))
		return
	}

	names := make([]string, 0, len(s.opts.Sinks))
	for _, sink := range s.opts.Sinks {
		names = append(names, sink.Name())
	}
	c.JSON(http.StatusOK, gin.H{"id": ds.ID, "customers": len(customers), "delivered": names})
}

func queryInt(c *gin.Context, key string, def, lo, hi int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		return 0, apperr.BadRequest(fmt.Sprintf("%s must be an integer in [%d, %d]", key, lo, hi))
	}
	return n, nil
}
