package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloo-solutions/docingest/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRowWriter mocks the relational sink
type MockRowWriter struct {
	mock.Mock
}

func (m *MockRowWriter) InsertRow(ctx context.Context, row domain.StoredRow) error {
	args := m.Called(ctx, row)
	return args.Error(0)
}

func longText(prefix string) string {
	return prefix + " " + strings.Repeat("lorem ipsum ", 10)
}

func embedded(id, text string, tokens int, vec []float32) domain.EmbeddedChunk {
	return domain.EmbeddedChunk{
		Chunk:     domain.Chunk{Identifier: id, Text: text, TokenCount: tokens},
		Embedding: vec,
	}
}

func TestPersistService_Persist_Success(t *testing.T) {
	mockWriter := new(MockRowWriter)
	service := NewPersistService(mockWriter, wordCounter{}, PersistConfig{MinTextLength: 100, EmbeddingDimension: 4})
	ctx := context.Background()

	text := longText("first")
	mockWriter.On("InsertRow", ctx, domain.StoredRow{
		Text:       text,
		TokenCount: wordCounter{}.Count(text),
		Identifier: "a.txt",
		Embedding:  []float32{0.1, 0.2, 0, 0},
	}).Return(nil).Once()

	// stale token count from an earlier stage must not be reused
	summary, err := service.Persist(ctx, []domain.EmbeddedChunk{
		embedded("a.txt", text, 9999, []float32{0.1, 0.2}),
	})

	require.NoError(t, err)
	assert.Equal(t, domain.PersistSummary{Saved: 1, Skipped: 0}, summary)
	mockWriter.AssertExpectations(t)
}

func TestPersistService_Persist_SkipsShortText(t *testing.T) {
	mockWriter := new(MockRowWriter)
	service := NewPersistService(mockWriter, wordCounter{}, DefaultPersistConfig())
	ctx := context.Background()

	keep := longText("keep")
	mockWriter.On("InsertRow", ctx, mock.MatchedBy(func(row domain.StoredRow) bool {
		return row.Text == keep
	})).Return(nil).Once()

	summary, err := service.Persist(ctx, []domain.EmbeddedChunk{
		embedded("c.txt", "", 0, nil),
		embedded("a.txt", strings.Repeat("x", 99), 1, []float32{1}),
		embedded("b.txt", keep, 20, []float32{1}),
	})

	require.NoError(t, err)
	assert.Equal(t, domain.PersistSummary{Saved: 1, Skipped: 2}, summary)
	mockWriter.AssertNumberOfCalls(t, "InsertRow", 1)
	mockWriter.AssertExpectations(t)
}

func TestPersistService_Persist_LengthCountsCharactersNotBytes(t *testing.T) {
	mockWriter := new(MockRowWriter)
	service := NewPersistService(mockWriter, wordCounter{}, PersistConfig{MinTextLength: 10, EmbeddingDimension: 1})
	ctx := context.Background()

	// 9 characters, 18 bytes
	short := strings.Repeat("é", 9)

	summary, err := service.Persist(ctx, []domain.EmbeddedChunk{embedded("a.txt", short, 1, nil)})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	mockWriter.AssertNotCalled(t, "InsertRow", mock.Anything, mock.Anything)
}

func TestPersistService_Persist_SkipsWhitespaceOnlyText(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		minLength int
	}{
		{"blank lines", strings.Repeat("\n", 150), 100},
		{"mixed whitespace", strings.Repeat(" \t\r\n", 50), 100},
		{"no minimum", "   ", 0},
		{"padding does not count", "   " + strings.Repeat("x", 99) + "\n\n", 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockWriter := new(MockRowWriter)
			service := NewPersistService(mockWriter, wordCounter{}, PersistConfig{MinTextLength: tt.minLength, EmbeddingDimension: 4})

			summary, err := service.Persist(context.Background(), []domain.EmbeddedChunk{
				embedded("blank.txt", tt.text, 0, []float32{}),
			})

			require.NoError(t, err)
			assert.Equal(t, domain.PersistSummary{Skipped: 1}, summary)
			mockWriter.AssertNotCalled(t, "InsertRow", mock.Anything, mock.Anything)
		})
	}
}

func TestPersistService_Persist_AstralCharactersCountOnce(t *testing.T) {
	mockWriter := new(MockRowWriter)
	service := NewPersistService(mockWriter, wordCounter{}, DefaultPersistConfig())

	// 60 code points, 120 UTF-16 code units
	text := strings.Repeat("\U0001F600", 60)

	summary, err := service.Persist(context.Background(), []domain.EmbeddedChunk{embedded("emoji.txt", text, 1, nil)})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	mockWriter.AssertNotCalled(t, "InsertRow", mock.Anything, mock.Anything)
}

func TestPersistService_Persist_ExactMinimumIsWritten(t *testing.T) {
	mockWriter := new(MockRowWriter)
	service := NewPersistService(mockWriter, wordCounter{}, DefaultPersistConfig())
	ctx := context.Background()

	mockWriter.On("InsertRow", ctx, mock.Anything).Return(nil).Once()

	summary, err := service.Persist(ctx, []domain.EmbeddedChunk{
		embedded("a.txt", strings.Repeat("y", 100), 1, nil),
	})

	require.NoError(t, err)
	assert.Equal(t, domain.PersistSummary{Saved: 1}, summary)
}

func TestPersistService_Persist_FitsEmbeddingDimension(t *testing.T) {
	mockWriter := new(MockRowWriter)
	service := NewPersistService(mockWriter, wordCounter{}, DefaultPersistConfig())
	ctx := context.Background()

	var rows []domain.StoredRow
	mockWriter.On("InsertRow", ctx, mock.Anything).Run(func(args mock.Arguments) {
		rows = append(rows, args.Get(1).(domain.StoredRow))
	}).Return(nil)

	long := make([]float32, 2000)
	for i := range long {
		long[i] = 1
	}

	_, err := service.Persist(ctx, []domain.EmbeddedChunk{
		embedded("short.txt", longText("short"), 1, []float32{1, 2, 3}),
		embedded("long.txt", longText("long"), 1, long),
	})

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0].Embedding, 1536)
	assert.Equal(t, []float32{1, 2, 3, 0}, rows[0].Embedding[:4])
	assert.Equal(t, float32(0), rows[0].Embedding[1535])
	assert.Len(t, rows[1].Embedding, 1536)
	assert.Equal(t, float32(1), rows[1].Embedding[1535])
}

func TestPersistService_Persist_WriteErrorAborts(t *testing.T) {
	mockWriter := new(MockRowWriter)
	service := NewPersistService(mockWriter, wordCounter{}, DefaultPersistConfig())
	ctx := context.Background()

	dbErr := errors.New("database connection lost")
	mockWriter.On("InsertRow", ctx, mock.MatchedBy(func(row domain.StoredRow) bool {
		return row.Identifier == "a.txt"
	})).Return(nil).Once()
	mockWriter.On("InsertRow", ctx, mock.MatchedBy(func(row domain.StoredRow) bool {
		return row.Identifier == "b.txt"
	})).Return(dbErr).Once()

	summary, err := service.Persist(ctx, []domain.EmbeddedChunk{
		embedded("a.txt", longText("a"), 1, nil),
		embedded("b.txt", longText("b"), 1, nil),
		embedded("c.txt", longText("c"), 1, nil),
	})

	assert.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
	assert.True(t, domain.IsKind(err, domain.ErrKindIO))
	assert.Equal(t, 1, summary.Saved)
	mockWriter.AssertNumberOfCalls(t, "InsertRow", 2)
}

func TestNewPersistService_Defaults(t *testing.T) {
	service := NewPersistService(new(MockRowWriter), wordCounter{}, PersistConfig{MinTextLength: -5})

	assert.Equal(t, 1536, service.cfg.EmbeddingDimension)
	assert.Equal(t, 0, service.cfg.MinTextLength)
}
