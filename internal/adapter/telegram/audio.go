package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// maxVoiceBytes bounds a downloaded voice message
const maxVoiceBytes = 20 << 20

// downloadFile downloads a file from Telegram
func (b *Bot) downloadFile(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxVoiceBytes))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// convertOGGtoWAV converts OGG audio to 16 kHz mono WAV using FFmpeg
func convertOGGtoWAV(ctx context.Context, oggData []byte, logger *zap.Logger) ([]byte, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	oggFile, err := os.CreateTemp("", "recite-audio-*.ogg")
	if err != nil {
		return nil, fmt.Errorf("create temp ogg file: %w", err)
	}
	oggPath := oggFile.Name()
	defer os.Remove(oggPath)

	if _, err := oggFile.Write(oggData); err != nil {
		oggFile.Close()
		return nil, fmt.Errorf("write ogg data: %w", err)
	}
	if err := oggFile.Close(); err != nil {
		return nil, fmt.Errorf("close ogg file: %w", err)
	}

	// WAV goes to stdout, no second temp file needed
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", oggPath,
		"-ar", "16000",
		"-ac", "1",
		"-f", "wav",
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		logger.Error("ffmpeg failed", zap.String("stderr", stderr.String()), zap.Error(err))
		return nil, fmt.Errorf("ffmpeg conversion failed: %w", err)
	}

	return stdout.Bytes(), nil
}

// processVoiceMessage downloads and converts a Telegram voice message to WAV
func (b *Bot) processVoiceMessage(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file info: %w", err)
	}

	oggData, err := b.downloadFile(ctx, file.Link(b.api.Token))
	if err != nil {
		return nil, err
	}

	wavData, err := convertOGGtoWAV(ctx, oggData, b.logger)
	if err != nil {
		return nil, fmt.Errorf("convert audio: %w", err)
	}

	return wavData, nil
}
