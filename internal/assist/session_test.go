package assist

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/mmynk/fundflow/internal/ledger"
	"github.com/mmynk/fundflow/internal/llm"
	"github.com/mmynk/fundflow/internal/models"
	"github.com/mmynk/fundflow/internal/proposal"
	"github.com/mmynk/fundflow/internal/validator"
)

const lunchReply = "```json\n" + `{
  "desc": "Lunch",
  "totalAmount": 90000,
  "payer": "A",
  "users": {"A": "60.000", "B": "-30.000", "C": "-30.000"},
  "reasoning": "90k split three ways.\nFINAL AMOUNTS:\n- An: +60.000đ\n- Bình: -30.000đ\n- Chi: -30.000đ"
}` + "\n```"

type scriptedParser struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   int
	gate    chan struct{}
	started chan struct{}
}

func (p *scriptedParser) Parse(ctx context.Context, req llm.Request) (string, error) {
	p.mu.Lock()
	i := p.calls
	p.calls++
	p.mu.Unlock()
	if p.started != nil {
		p.started <- struct{}{}
	}
	if p.gate != nil && i == 0 {
		<-p.gate
	}
	if p.err != nil {
		return "", p.err
	}
	return p.replies[i%len(p.replies)], nil
}

type fakeCommitter struct {
	inputs []ledger.Input
	err    error
}

func (c *fakeCommitter) CreateTransaction(ctx context.Context, in ledger.Input) (*models.Transaction, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.inputs = append(c.inputs, in)
	return &models.Transaction{ID: "t1", FundID: in.FundID, Description: in.Description, Splits: in.Splits}, nil
}

func newSession(parser llm.Parser, committer Committer) *Session {
	fund := models.Fund{ID: "f1", Name: "Roommates", Members: []string{"A", "B", "C"}}
	roster := []models.User{
		{ID: "A", DisplayName: "An"},
		{ID: "B", DisplayName: "Bình"},
		{ID: "C", DisplayName: "Chi"},
	}
	return NewSession(parser, validator.New(validator.DefaultPolicy(), nil), committer, fund, roster, "A")
}

func splitOf(splits []models.Split, id string) float64 {
	for _, s := range splits {
		if s.UserID == id {
			return s.Amount
		}
	}
	return math.NaN()
}

func TestSession_HappyPath(t *testing.T) {
	committer := &fakeCommitter{}
	s := newSession(&scriptedParser{replies: []string{lunchReply}}, committer)
	ctx := context.Background()

	if s.State() != StateIdle {
		t.Fatalf("initial state = %s", s.State())
	}
	if _, err := s.Submit(ctx); !errors.Is(err, ErrEmptyPrompt) {
		t.Errorf("Submit without prompt error = %v", err)
	}

	s.SetPrompt("An paid 90k lunch for everyone")
	if s.State() != StateDrafting {
		t.Errorf("state = %s, want drafting", s.State())
	}

	res, err := s.Submit(ctx)
	if err != nil {
		t.Fatalf("Submit error = %v", err)
	}
	if s.State() != StateProposed {
		t.Errorf("state = %s, want proposed", s.State())
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings = %+v", res.Warnings)
	}
	if got := splitOf(res.Draft.Splits, "A"); got != 60000 {
		t.Errorf("A = %v, want 60000", got)
	}

	tx, err := s.Commit(ctx)
	if err != nil {
		t.Fatalf("Commit error = %v", err)
	}
	if tx.ID != "t1" || s.State() != StateCommitted {
		t.Errorf("tx = %+v, state = %s", tx, s.State())
	}
	in := committer.inputs[0]
	if !in.AIGenerated || in.AIPrompt != "An paid 90k lunch for everyone" || in.ActorID != "A" || in.Reasoning == "" {
		t.Errorf("committed input = %+v", in)
	}
	if _, ok := s.Proposal(); ok {
		t.Error("no proposal should be live after commit")
	}
}

func TestSession_EditRebalancesPayer(t *testing.T) {
	s := newSession(&scriptedParser{replies: []string{lunchReply}}, &fakeCommitter{})
	s.SetPrompt("lunch")
	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Edit("B", true, "50.000"); err != nil {
		t.Fatalf("Edit B error = %v", err)
	}
	res, err := s.Edit("C", false, "10,000đ")
	if err != nil {
		t.Fatalf("Edit C error = %v", err)
	}

	want := map[string]float64{"A": 40000, "B": -50000, "C": 10000}
	for id, amount := range want {
		if got := splitOf(res.Draft.Splits, id); got != amount {
			t.Errorf("%s = %v, want %v", id, got, amount)
		}
	}
	if res.Draft.Reasoning == "" {
		t.Error("edit should keep the narrative on the draft")
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings = %+v", res.Warnings)
	}

	if _, err := s.Edit("B", true, "lots"); err == nil {
		t.Error("Expected unparseable amount to fail")
	}
	if got, _ := s.Proposal(); splitOf(got.Draft.Splits, "B") != -50000 {
		t.Error("failed edit changed the proposal")
	}

	var verr *validator.ValidationError
	if _, err := s.Edit("Z", true, "1000"); !errors.As(err, &verr) {
		t.Errorf("edit with unknown member error = %v, want ValidationError", err)
	}
}

func TestSession_EditPayerRejected(t *testing.T) {
	s := newSession(&scriptedParser{replies: []string{lunchReply}}, &fakeCommitter{})
	s.SetPrompt("lunch")
	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Edit("A", false, "75.000"); !errors.Is(err, ErrPayerEdit) {
		t.Fatalf("Edit payer error = %v, want ErrPayerEdit", err)
	}
	got, ok := s.Proposal()
	if !ok {
		t.Fatal("proposal should still be live")
	}
	if a := splitOf(got.Draft.Splits, "A"); a != 60000 {
		t.Errorf("A = %v, want 60000 unchanged", a)
	}
}

func TestSession_InvalidReplyReturnsToDrafting(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		check func(error) bool
	}{
		{"not json", "I cannot help with that", func(err error) bool { return errors.Is(err, proposal.ErrNoJSONObject) }},
		{"unknown payer", `{"desc":"x","totalAmount":100,"payer":"Q","users":{"A":50,"B":-50}}`, func(err error) bool {
			return errors.Is(err, validator.ErrUnknownPayer)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(&scriptedParser{replies: []string{tt.reply}}, &fakeCommitter{})
			s.SetPrompt("something")
			_, err := s.Submit(context.Background())
			if !tt.check(err) {
				t.Errorf("error = %v", err)
			}
			if s.State() != StateDrafting {
				t.Errorf("state = %s, want drafting", s.State())
			}
		})
	}
}

func TestSession_ParserFailure(t *testing.T) {
	cfgErr := &llm.ConfigError{Provider: "openai", Reason: "missing API key"}
	s := newSession(&scriptedParser{err: cfgErr}, &fakeCommitter{})
	s.SetPrompt("lunch")
	_, err := s.Submit(context.Background())
	var target *llm.ConfigError
	if !errors.As(err, &target) {
		t.Errorf("error = %v, want ConfigError", err)
	}
}

func TestSession_StaleResultDropped(t *testing.T) {
	parser := &scriptedParser{
		replies: []string{lunchReply},
		gate:    make(chan struct{}),
		started: make(chan struct{}, 2),
	}
	s := newSession(parser, &fakeCommitter{})
	s.SetPrompt("lunch")

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background())
		errCh <- err
	}()
	<-parser.started

	s.Discard()
	close(parser.gate)
	if err := <-errCh; !errors.Is(err, ErrStale) {
		t.Errorf("error = %v, want ErrStale", err)
	}
	if s.State() != StateDiscarded {
		t.Errorf("state = %s, want discarded", s.State())
	}
}

func TestSession_NewSubmitSupersedesOld(t *testing.T) {
	parser := &scriptedParser{
		replies: []string{lunchReply},
		gate:    make(chan struct{}),
		started: make(chan struct{}, 2),
	}
	s := newSession(parser, &fakeCommitter{})
	s.SetPrompt("lunch")

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background())
		errCh <- err
	}()
	<-parser.started

	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatalf("second Submit error = %v", err)
	}
	close(parser.gate)
	if err := <-errCh; !errors.Is(err, ErrStale) {
		t.Errorf("first Submit error = %v, want ErrStale", err)
	}
	if s.State() != StateProposed {
		t.Errorf("state = %s, want proposed", s.State())
	}
}

func TestSession_CommitRequiresProposal(t *testing.T) {
	committer := &fakeCommitter{}
	s := newSession(&scriptedParser{replies: []string{lunchReply}}, committer)
	if _, err := s.Commit(context.Background()); !errors.Is(err, ErrInvalidState) {
		t.Errorf("error = %v, want ErrInvalidState", err)
	}

	s.SetPrompt("lunch")
	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	committer.err = errors.New("store unavailable")
	if _, err := s.Commit(context.Background()); err == nil {
		t.Error("Expected store failure")
	}
	if s.State() != StateProposed {
		t.Errorf("failed commit should keep the proposal, state = %s", s.State())
	}
}
