package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"chekbot/config"
	"chekbot/internal/check"
	"chekbot/internal/domain"
	"chekbot/internal/pipeline"
	"chekbot/internal/repository"
	"chekbot/internal/session"
)

const (
	msgWelcome          = "Добро пожаловать! Пожалуйста, отправьте чек в формате PDF."
	msgAskName          = "Чек принят. Пожалуйста, введите ваше ФИО:"
	msgAskAddress       = "Теперь введите ваш адрес:"
	msgAskPhone         = "Теперь введите ваш номер телефона:"
	msgNoSession        = "Ошибка: Сначала отправьте чек в формате PDF."
	msgDuplicate        = "Ошибка: Этот чек уже был обработан."
	msgExtractionFailed = "Ошибка: Не удалось обработать чек. Попробуйте другой файл."
	msgNotPDF           = "Пожалуйста, отправьте чек в формате PDF."
	msgUnsupported      = "Неподдерживаемый тип сообщения."
	msgAdminOnly        = "Команда доступна только администратору."
	msgExportFailed     = "Ошибка: Не удалось экспортировать данные в Excel."
	msgFileNotFound     = "Файл не найден. Сначала экспортируйте данные с помощью команды /export."
)

type Handler struct {
	cfg      *config.Config
	logger   *zap.Logger
	pipeline *pipeline.Pipeline
	records  *repository.RecordRepository
}

func NewHandler(cfg *config.Config, logger *zap.Logger, p *pipeline.Pipeline, records *repository.RecordRepository) *Handler {
	return &Handler{
		cfg:      cfg,
		logger:   logger,
		pipeline: p,
		records:  records,
	}
}

// DefaultHandler routes every incoming Telegram update: commands, receipt
// documents and questionnaire answers.
func (h *Handler) DefaultHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	msg := update.Message
	submitterID := msg.From.ID

	switch {
	case msg.Document != nil:
		h.handleDocument(ctx, b, submitterID, msg.Chat.ID, msg.Document)
	case msg.Text == "/start":
		h.reply(ctx, b, msg.Chat.ID, msgWelcome)
	case msg.Text == "/export":
		h.handleExport(ctx, b, submitterID, msg.Chat.ID)
	case msg.Text == "/get_excel":
		h.sendExportFile(ctx, b, msg.Chat.ID)
	case msg.Text != "":
		h.handleText(ctx, b, submitterID, msg.Chat.ID, msg.Text)
	default:
		h.reply(ctx, b, msg.Chat.ID, msgUnsupported)
	}
}

// handleDocument downloads the attached PDF and runs it through the receipt
// pipeline. Rejection reasons are surfaced to the submitter verbatim.
func (h *Handler) handleDocument(ctx context.Context, b *bot.Bot, submitterID, chatID int64, doc *models.Document) {
	if !isPDF(doc) {
		h.reply(ctx, b, chatID, msgNotPDF)
		return
	}

	data, err := h.downloadDocument(ctx, b, doc)
	if err != nil {
		h.logger.Error("Failed to download document",
			zap.Error(err),
			zap.Int64("submitter_id", submitterID),
			zap.String("file_name", doc.FileName))
		h.reply(ctx, b, chatID, msgExtractionFailed)
		return
	}

	accepted, err := h.pipeline.SubmitDocument(ctx, submitterID, data)
	if err != nil {
		h.reply(ctx, b, chatID, h.rejectionMessage(err))
		return
	}

	h.logger.Info("Receipt accepted, questionnaire started",
		zap.Int64("submitter_id", submitterID),
		zap.String("check_number", accepted.CheckNumber),
		zap.Float64("amount", accepted.Amount))

	h.reply(ctx, b, chatID, msgAskName)
}

func (h *Handler) rejectionMessage(err error) string {
	switch {
	case errors.Is(err, check.ErrDuplicateReceipt):
		return msgDuplicate
	case errors.Is(err, check.ErrAmountTooLow):
		return fmt.Sprintf("Ошибка: Сумма чека меньше %.0f.", h.cfg.MinAmount)
	case errors.Is(err, pipeline.ErrExtractionFailed):
		return msgExtractionFailed
	default:
		return msgExtractionFailed
	}
}

// handleText feeds a free-text message into the submitter's questionnaire.
func (h *Handler) handleText(ctx context.Context, b *bot.Bot, submitterID, chatID int64, text string) {
	res, err := h.pipeline.SubmitText(ctx, submitterID, text)
	if err != nil {
		if errors.Is(err, session.ErrNoActiveSession) {
			h.reply(ctx, b, chatID, msgNoSession)
			return
		}
		h.logger.Error("Failed to process text message",
			zap.Error(err),
			zap.Int64("submitter_id", submitterID))
		return
	}

	switch res.Step {
	case domain.StepAwaitingAddress:
		h.reply(ctx, b, chatID, msgAskAddress)
	case domain.StepAwaitingPhone:
		h.reply(ctx, b, chatID, msgAskPhone)
	default:
		uids := strings.Join(res.Record.UIDs, ", ")
		h.reply(ctx, b, chatID, "Спасибо! Ваши данные сохранены. Ваш UID: "+uids)
	}
}

// handleExport runs the export and sends the resulting file plus a UID
// summary back to the chat.
func (h *Handler) handleExport(ctx context.Context, b *bot.Bot, submitterID, chatID int64) {
	if h.cfg.AdminTelegramID != 0 && submitterID != h.cfg.AdminTelegramID {
		h.reply(ctx, b, chatID, msgAdminOnly)
		return
	}

	path, err := h.pipeline.ExportAll(ctx)
	if err != nil {
		h.logger.Error("Export failed", zap.Error(err))
		h.reply(ctx, b, chatID, msgExportFailed)
		return
	}

	h.logger.Info("Export finished", zap.String("path", path))
	h.sendExportFile(ctx, b, chatID)
	h.sendUIDSummary(ctx, b, chatID)
}

func (h *Handler) sendExportFile(ctx context.Context, b *bot.Bot, chatID int64) {
	data, err := os.ReadFile(h.cfg.ExportPath)
	if err != nil {
		h.reply(ctx, b, chatID, msgFileNotFound)
		return
	}

	_, err = b.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID: chatID,
		Document: &models.InputFileUpload{
			Filename: filepath.Base(h.cfg.ExportPath),
			Data:     bytes.NewReader(data),
		},
	})
	if err != nil {
		h.logger.Error("Failed to send export file",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (h *Handler) sendUIDSummary(ctx context.Context, b *bot.Bot, chatID int64) {
	var sb strings.Builder
	sb.WriteString("Сгенерированные UID для пользователей:\n")
	for _, rec := range h.pipeline.Records() {
		if len(rec.UIDs) == 0 {
			continue
		}
		sb.WriteString(rec.CheckNumber)
		sb.WriteString(": ")
		sb.WriteString(strings.Join(rec.UIDs, ", "))
		sb.WriteString("\n")
	}
	h.reply(ctx, b, chatID, sb.String())
}

// downloadDocument fetches the attachment bytes through the Telegram file API.
func (h *Handler) downloadDocument(ctx context.Context, b *bot.Bot, doc *models.Document) ([]byte, error) {
	file, err := b.GetFile(ctx, &bot.GetFileParams{FileID: doc.FileID})
	if err != nil {
		return nil, fmt.Errorf("resolving file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.FileDownloadLink(file), nil)
	if err != nil {
		return nil, fmt.Errorf("building download request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading file: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, h.cfg.MaxFileSize))
	if err != nil {
		return nil, fmt.Errorf("reading file body: %w", err)
	}
	return data, nil
}

func (h *Handler) reply(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func isPDF(doc *models.Document) bool {
	if doc.MimeType == "application/pdf" {
		return true
	}
	return strings.EqualFold(filepath.Ext(doc.FileName), ".pdf")
}

// StartWebServer runs the admin HTTP API: health, archived records and the
// export file.
func (h *Handler) StartWebServer(ctx context.Context) {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}).Methods("GET")

	r.HandleFunc("/api/records", h.handleRecordList).Methods("GET")

	r.HandleFunc("/export/file", func(w http.ResponseWriter, r *http.Request) {
		if _, err := os.Stat(h.cfg.ExportPath); os.IsNotExist(err) {
			http.Error(w, "export file not found", http.StatusNotFound)
			return
		}
		http.ServeFile(w, r, h.cfg.ExportPath)
	}).Methods("GET")

	server := &http.Server{
		Addr:         h.cfg.Port,
		Handler:      r,
		ReadTimeout:  h.cfg.ReadTimeout,
		WriteTimeout: h.cfg.WriteTimeout,
		IdleTimeout:  h.cfg.IdleTimeout,
	}

	h.logger.Info("Starting web server", zap.String("port", h.cfg.Port))
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Fatal("Failed to start web server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	h.logger.Info("Shutting down web server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		h.logger.Error("Server shutdown error", zap.Error(err))
	}
}

func (h *Handler) handleRecordList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	records, err := h.records.ListRecords()
	if err != nil {
		h.logger.Error("Failed to list archived records", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "failed to list records"})
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"count":   len(records),
		"records": records,
	})
}
