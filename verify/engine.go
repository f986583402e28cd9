// Package verify accepts evidence that a listed dataset is what it claims
// to be and records the result on the listing.
//
// Two kinds of evidence are accepted. A proof of computation carries public
// values that commit to the dataset and score it; a hardware oracle signs an
// attestation of the dataset's hash with its registered key. Either way a
// listing is verified at most once, and the accepted evidence is kept as a
// VerificationRecord of digests rather than raw bytes.
package verify

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"time"

	"github.com/filecoin-project/go-clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"lukechampine.com/blake3"

	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/events"
	"github.com/teranos/exchainge/ledger"
	"github.com/teranos/exchainge/logger"
	"github.com/teranos/exchainge/oracle"
	"github.com/teranos/exchainge/platform"
	"github.com/teranos/exchainge/types"
)

// Config holds the acceptance thresholds.
type Config struct {
	// MinScore applies to both the verification and anti-synthesis scores.
	MinScore uint8
	// SignatureMaxAge is the oldest oracle signature accepted. A signature
	// exactly this old still passes.
	SignatureMaxAge time.Duration
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{MinScore: 60, SignatureMaxAge: 300 * time.Second}
}

// Option configures an Engine.
type Option func(*Engine)

// WithSignatureVerifier replaces the ed25519 signature check.
func WithSignatureVerifier(v SignatureVerifier) Option {
	return func(e *Engine) { e.signatures = v }
}

// WithProofVerifier runs every submitted proof through v before it is
// considered. Without one, public values are taken as submitted.
func WithProofVerifier(v ProofVerifier) Option {
	return func(e *Engine) { e.proofs = v }
}

// WithThrottle limits how fast each oracle may submit.
func WithThrottle(t *oracle.Throttle) Option {
	return func(e *Engine) { e.throttle = t }
}

// Engine verifies listings.
type Engine struct {
	store      ledger.Store
	cfg        Config
	clock      clock.Clock
	sink       events.Sink
	logger     *zap.SugaredLogger
	signatures SignatureVerifier
	proofs     ProofVerifier
	throttle   *oracle.Throttle
}

// NewEngine creates a verification engine.
func NewEngine(store ledger.Store, cfg Config, clk clock.Clock, sink events.Sink, log *zap.SugaredLogger, opts ...Option) *Engine {
	if cfg.SignatureMaxAge <= 0 {
		cfg.SignatureMaxAge = DefaultConfig().SignatureMaxAge
	}
	if clk == nil {
		clk = clock.New()
	}
	if sink == nil {
		sink = events.Discard
	}
	if log == nil {
		log = logger.ComponentLogger("verify")
	}
	e := &Engine{
		store:      store,
		cfg:        cfg,
		clock:      clk,
		sink:       sink,
		logger:     log,
		signatures: Ed25519Verifier{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type verifyTx interface {
	ledger.Reader
	ledger.VerificationWriter
}

// Verify checks ev against the listing and, when it passes, marks the
// listing verified and stores the record. Any rejection leaves the listing,
// the oracle quota and the record store untouched.
func (e *Engine) Verify(ctx context.Context, listingID string, ev Evidence) (types.VerificationRecord, error) {
	log := logger.FromContext(ctx, e.logger)
	now := e.clock.Now().UTC()

	var method types.VerificationMethod
	if ev != nil {
		method = ev.Method()
	}

	var rec types.VerificationRecord
	err := e.precheck(ctx, ev)
	if err == nil {
		err = e.store.Update(ctx, func(tx ledger.Tx) error {
			var err error
			rec, err = e.verify(tx, listingID, ev, now)
			return err
		})
	}
	if err != nil {
		logger.Rejected(log, "verify", err, logger.FieldListingID, listingID, logger.FieldMethod, method)
		return types.VerificationRecord{}, err
	}

	log.Infow("Listing verified",
		logger.FieldListingID, listingID,
		logger.FieldVerificationID, rec.ID,
		logger.FieldMethod, rec.Method,
		"verifier", rec.Verifier,
	)
	data := map[string]any{
		"record_id":  rec.ID,
		"method":     string(rec.Method),
		"commitment": rec.Commitment.String(),
	}
	if rec.Oracle != nil {
		data["oracle_id"] = rec.Oracle.OracleID
	}
	e.sink.Emit(ctx, events.New(events.VerificationAccepted, listingID, rec.Verifier, now, data))
	return rec, nil
}

// precheck runs the external proof verifier, which must not be called while
// the store is locked.
func (e *Engine) precheck(ctx context.Context, ev Evidence) error {
	p, ok := ev.(ProofEvidence)
	if !ok || e.proofs == nil {
		return nil
	}
	out, err := e.proofs.VerifyProof(ctx, p.Proof)
	if err != nil {
		return errors.WithSecondaryError(errors.Wrap(ErrProofRejected, "proof verifier"), err)
	}
	if !bytes.Equal(out, p.PublicValues) {
		return errors.Wrapf(ErrPublicValuesMismatch, "verifier produced %d bytes, submitted %d", len(out), len(p.PublicValues))
	}
	return nil
}

func (e *Engine) verify(tx verifyTx, listingID string, ev Evidence, now time.Time) (types.VerificationRecord, error) {
	if _, err := platform.RequireActive(tx); err != nil {
		return types.VerificationRecord{}, err
	}
	l, err := tx.Listing(listingID)
	if err != nil {
		return types.VerificationRecord{}, err
	}
	if l.Verification.Verified {
		return types.VerificationRecord{}, errors.Wrapf(ErrAlreadyVerified, "listing %s", listingID)
	}
	if l.IsExpired(now) {
		return types.VerificationRecord{}, errors.Wrapf(ErrListingExpired, "listing %s expired at %s", listingID, l.ExpiresAt.Format(time.RFC3339))
	}
	if !l.IsActive() {
		return types.VerificationRecord{}, errors.Wrapf(ErrListingInactive, "listing %s", listingID)
	}

	rec := types.VerificationRecord{
		ID:         uuid.NewString(),
		ListingID:  listingID,
		VerifiedAt: now,
	}
	switch ev := ev.(type) {
	case ProofEvidence:
		err = e.acceptProof(&rec, ev)
	case OracleEvidence:
		err = e.acceptOracle(tx, &rec, ev, now)
	default:
		err = errors.Wrapf(ErrUnknownEvidence, "%T", ev)
	}
	if err != nil {
		return types.VerificationRecord{}, err
	}

	if _, err := tx.UpdateListingVerification(listingID, now, func(_ types.Listing, v *types.VerificationState) error {
		v.Verified = true
		v.Commitment = rec.Commitment
		v.VerifiedAt = &now
		v.RecordID = rec.ID
		return nil
	}); err != nil {
		return types.VerificationRecord{}, err
	}
	if err := tx.CreateVerification(rec); err != nil {
		return types.VerificationRecord{}, err
	}
	return rec, nil
}

func (e *Engine) acceptProof(rec *types.VerificationRecord, ev ProofEvidence) error {
	if err := ev.Submitter.Validate(); err != nil {
		return errors.Wrap(err, "proof submitter")
	}
	pv, err := ParsePublicValues(ev.PublicValues)
	if err != nil {
		return err
	}
	if ev.Commitment.IsZero() {
		return errors.WithStack(ErrCommitmentZero)
	}
	if ev.Commitment != pv.Commitment {
		return errors.Wrapf(ErrCommitmentMismatch, "submitted %s, proof commits to %s", ev.Commitment, pv.Commitment)
	}
	if pv.VerificationScore < e.cfg.MinScore {
		return errors.Wrapf(ErrScoreTooLow, "%d < %d", pv.VerificationScore, e.cfg.MinScore)
	}
	if pv.AntiSynthesisScore < e.cfg.MinScore {
		return errors.Wrapf(ErrAntiSynthesisTooLow, "%d < %d", pv.AntiSynthesisScore, e.cfg.MinScore)
	}
	if !pv.PhysicsConsistent {
		return errors.WithStack(ErrPhysicsInconsistent)
	}

	rec.Method = types.MethodProof
	rec.Commitment = pv.Commitment
	rec.Verifier = ev.Submitter
	rec.Nonce = digest(ev.Proof, ev.PublicValues)
	rec.Proof = &types.ProofAttestation{
		ProofDigest:        digest(ev.Proof),
		PublicValuesDigest: digest(ev.PublicValues),
		VerificationScore:  pv.VerificationScore,
		AntiSynthesisScore: pv.AntiSynthesisScore,
		PhysicsConsistent:  pv.PhysicsConsistent,
	}
	return nil
}

func (e *Engine) acceptOracle(tx verifyTx, rec *types.VerificationRecord, ev OracleEvidence, now time.Time) error {
	if err := checkOracleInput(ev); err != nil {
		return err
	}
	reg, err := tx.OracleRegistry()
	if err != nil {
		return err
	}
	o, err := tx.Oracle(ev.OracleID)
	if err != nil {
		return err
	}
	if err := oracle.CheckSigner(reg, o); err != nil {
		return err
	}

	// Signatures carry whole seconds, so freshness is judged in whole seconds too
	signedAt := time.Unix(ev.Timestamp.Unix(), 0).UTC()
	nowSec := now.Truncate(time.Second)
	if signedAt.After(nowSec) {
		return errors.Wrapf(ErrSignatureFromFuture, "signed at %s, now %s", signedAt.Format(time.RFC3339), now.Format(time.RFC3339))
	}
	if age := nowSec.Sub(signedAt); age > e.cfg.SignatureMaxAge {
		return errors.Wrapf(ErrSignatureStale, "signed %s ago, max %s", age, e.cfg.SignatureMaxAge)
	}

	msg := CanonicalMessage(rec.ListingID, ev.DataHash, signedAt, ev.Location)
	ok, err := e.signatures.VerifySignature(o.PublicKey, msg, ev.Signature)
	if err != nil {
		return errors.WithSecondaryError(errors.Wrapf(ErrSignatureCheckFailed, "oracle %s", o.ID), err)
	}
	if !ok {
		return errors.Wrapf(ErrSignatureInvalid, "oracle %s", o.ID)
	}

	if err := e.throttle.Allow(o.ID, now); err != nil {
		return err
	}
	if _, err := tx.UpdateOracleQuota(o.ID, func(_ types.Oracle, q *types.OracleQuota) error {
		return oracle.ConsumeQuota(q, now, reg.MaxVerificationsPerDay)
	}); err != nil {
		return err
	}

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(signedAt.Unix()))

	rec.Method = types.MethodOracle
	rec.Commitment = digest(msg)
	rec.Verifier = o.PublicKey
	rec.Nonce = digest(ev.Signature, ts[:])
	rec.Oracle = &types.OracleAttestation{
		OracleID:        o.ID,
		HardwareID:      o.HardwareID,
		DataHash:        ev.DataHash,
		SignatureDigest: digest(ev.Signature),
		SignedAt:        signedAt,
		SensorReadings:  append([]types.SensorReading(nil), ev.SensorReadings...),
	}
	if ev.Location != nil {
		loc := digest([]byte(*ev.Location))
		rec.Oracle.LocationDigest = &loc
	}
	return nil
}

func checkOracleInput(ev OracleEvidence) error {
	switch {
	case ev.DataHash == "":
		return errors.WithStack(ErrDataHashEmpty)
	case len(ev.DataHash) > types.MaxDataHashLength:
		return errors.Wrapf(ErrDataHashTooLong, "%d bytes, max %d", len(ev.DataHash), types.MaxDataHashLength)
	case ev.Location != nil && len(*ev.Location) > types.MaxLocationLength:
		return errors.Wrapf(ErrLocationTooLong, "%d bytes, max %d", len(*ev.Location), types.MaxLocationLength)
	case len(ev.SensorReadings) > types.MaxSensorReadings:
		return errors.Wrapf(ErrTooManySensorReadings, "%d, max %d", len(ev.SensorReadings), types.MaxSensorReadings)
	}
	for i, r := range ev.SensorReadings {
		if r.SensorType == "" || len(r.SensorType) > types.MaxSensorTypeLength {
			return errors.Wrapf(ErrSensorReadingInvalid, "reading %d: sensor type must be 1..%d bytes", i, types.MaxSensorTypeLength)
		}
		if len(r.Unit) > types.MaxSensorUnitLength {
			return errors.Wrapf(ErrSensorReadingInvalid, "reading %d: unit longer than %d bytes", i, types.MaxSensorUnitLength)
		}
		if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
			return errors.Wrapf(ErrSensorReadingInvalid, "reading %d: value %v", i, r.Value)
		}
	}
	return nil
}

// digest is blake3-256 over the concatenation of parts.
func digest(parts ...[]byte) types.Digest {
	h := blake3.New(32, nil)
	for _, p := range parts {
		h.Write(p)
	}
	var d types.Digest
	h.Sum(d[:0])
	return d
}
