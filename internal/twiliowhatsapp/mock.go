package twiliowhatsapp

import "context"

// MockDownloader is a test double for MediaDownloader.
type MockDownloader struct {
	Data          []byte
	Err           error
	RequestedURLs []string
}

func NewMockDownloader(data []byte, err error) *MockDownloader {
	return &MockDownloader{Data: data, Err: err}
}

func (m *MockDownloader) DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	m.RequestedURLs = append(m.RequestedURLs, mediaURL)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Data, nil
}
