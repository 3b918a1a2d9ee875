package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/siades/backend/internal/application/port"
	"github.com/siades/backend/internal/domain/entity"
)

// SignatureIssuer produces the signature artifact for an approved letter
// request. Called only from inside the approve transition, after its
// conditional update succeeded and before commit; the CAS guarantees at most
// one successful approve per request, so issuance is effectively exactly-once.
type SignatureIssuer interface {
	Issue(ctx context.Context, letterRequestID string) (*entity.DigitalSignature, error)
}

type signatureIssuer struct {
	signatures port.SignatureRepository
	imageDir   string
	qrDir      string
	logger     *zap.Logger
}

// NewSignatureIssuer creates a new SignatureIssuer
func NewSignatureIssuer(signatures port.SignatureRepository, imageDir, qrDir string, logger *zap.Logger) SignatureIssuer {
	return &signatureIssuer{
		signatures: signatures,
		imageDir:   imageDir,
		qrDir:      qrDir,
		logger:     logger,
	}
}

// Issue synthesizes a unique token, derives the artifact references from it
// and inserts the DigitalSignature row. The uniqueness constraint on
// letter_request_id surfaces duplicate issuance outside the normal flow as a
// Conflict.
func (s *signatureIssuer) Issue(ctx context.Context, letterRequestID string) (*entity.DigitalSignature, error) {
	token := uuid.NewString()

	digest := sha256.Sum256([]byte(letterRequestID + "|" + token))

	sig := &entity.DigitalSignature{
		ID:                uuid.NewString(),
		LetterRequestID:   letterRequestID,
		SignatureImageRef: fmt.Sprintf("%s/%s.png", s.imageDir, token),
		DocumentHash:      hex.EncodeToString(digest[:]),
		QRCodeRef:         fmt.Sprintf("%s/%s.png", s.qrDir, token),
		CreatedAt:         time.Now().UTC(),
	}

	if err := s.signatures.Create(ctx, sig); err != nil {
		s.logger.Error("Failed to create digital signature",
			zap.String("letter_request_id", letterRequestID),
			zap.Error(err))
		return nil, fmt.Errorf("create digital signature: %w", err)
	}

	return sig, nil
}
