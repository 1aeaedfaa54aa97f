package http

import (
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"carprice/dataset"
	"carprice/ml"
	"carprice/service"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed templates/*.html assets/*
var webFiles embed.FS

var pages = template.Must(template.ParseFS(webFiles, "templates/*.html"))

type Handlers struct {
	app     *service.App
	plotURL string
	log     *zap.Logger
	printer *message.Printer
}

func NewHandlers(app *service.App, plotURL string, logger *zap.Logger) *Handlers {
	if plotURL == "" {
		plotURL = "static/plot.png"
	}
	return &Handlers{
		app:     app,
		plotURL: plotURL,
		log:     logger,
		printer: message.NewPrinter(language.English),
	}
}

func RegisterHandlers(mux *http.ServeMux, h *Handlers) {
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("POST /{$}", h.handleIndex)
	mux.HandleFunc("GET /predict", h.handlePredict)
	mux.HandleFunc("POST /predict", h.handlePredict)

	assets, err := fs.Sub(webFiles, "assets")
	if err != nil {
		panic(err)
	}
	mux.Handle("GET /assets/", http.StripPrefix("/assets/", http.FileServer(http.FS(assets))))
}

type indexPage struct {
	PlotURL string
	Rows    int
	Trained bool
}

type predictPage struct {
	Year  int
	Hand  int
	Price string
}

func (h *Handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		h.submit(r)
	}

	if err := h.app.RenderPlot(); err != nil {
		h.log.Error("render plot", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
	}

	snap := h.app.Snapshot()
	h.render(w, r, "index.html", indexPage{
		PlotURL: h.plotURL + "?v=" + strconv.Itoa(len(snap.Observations)),
		Rows:    len(snap.Observations),
		Trained: snap.Model.Trained,
	})
}

// submit records one observation. Bad input and storage errors are logged
// and the submission is dropped; the page renders either way.
func (h *Handlers) submit(r *http.Request) {
	requestID := GetRequestID(r.Context())
	obs, err := dataset.ParseObservation(r.PostFormValue("year"), r.PostFormValue("hand"), r.PostFormValue("price"))
	if err != nil {
		h.log.Warn("rejected submission", zap.String("request_id", requestID), zap.Error(err))
		return
	}

	result, err := h.app.Submit(r.Context(), obs)
	if err != nil {
		h.log.Error("process submission", zap.String("request_id", requestID), zap.Error(err))
		return
	}
	h.log.Info("observation added",
		zap.String("request_id", requestID),
		zap.Int("year", obs.Year),
		zap.Int("hand", obs.Hand),
		zap.String("price", obs.Price.String()),
		zap.Int("rows", result.Rows),
		zap.Bool("retrained", result.Retrained))
}

func (h *Handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	requestID := GetRequestID(r.Context())
	year, yerr := strconv.Atoi(strings.TrimSpace(r.PostFormValue("year")))
	hand, herr := strconv.Atoi(strings.TrimSpace(r.PostFormValue("hand")))
	if err := errors.Join(yerr, herr); err != nil {
		h.log.Warn("invalid prediction input", zap.String("request_id", requestID), zap.Error(err))
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	price, err := h.app.Predict(year, hand)
	if err != nil {
		if errors.Is(err, ml.ErrNotTrained) {
			h.log.Warn("prediction before training", zap.String("request_id", requestID))
		} else {
			h.log.Error("predict", zap.String("request_id", requestID), zap.Error(err))
		}
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	h.render(w, r, "predict.html", predictPage{
		Year:  year,
		Hand:  hand,
		Price: h.printer.Sprintf("%.2f", service.RoundPrice(price)),
	})
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		h.log.Error("execute template", zap.String("template", name),
			zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
	}
}
