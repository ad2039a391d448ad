package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"debatearena/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const noArgument = "(no argument submitted)"

// followUpTimeout bounds the writes made after a judge call returns
const followUpTimeout = 5 * time.Second

// JudgeService gathers a round's transcript, asks the external judge for a verdict and
// applies it to the room.
type JudgeService struct {
	store   Store
	judge   Judge
	outcome *Outcome
	now     func() time.Time
}

func NewJudgeService(store Store, judge Judge, outcome *Outcome) *JudgeService {
	return &JudgeService{store: store, judge: judge, outcome: outcome, now: time.Now}
}

// JudgePhase judges one argument round of a room. Any failure closes the judging window
// as failed so the game proceeds with no health change; failures are never retried.
func (s *JudgeService) JudgePhase(ctx context.Context, roomID string, phase models.Phase) (*models.Verdict, error) {
	if !phase.IsArgument() {
		return nil, fmt.Errorf("%w: cannot judge phase %q", ErrInvalidAction, phase)
	}
	if s.judge == nil {
		s.fail(ctx, roomID, phase, ErrJudgeUnavailable)
		return nil, ErrJudgeUnavailable
	}

	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		s.fail(ctx, roomID, phase, err)
		return nil, fmt.Errorf("load room: %w", err)
	}
	messages, err := s.store.ListPhaseMessages(ctx, roomID, phase)
	if err != nil {
		s.fail(ctx, roomID, phase, err)
		return nil, fmt.Errorf("load transcript: %w", err)
	}

	verdict, _, err := JudgeTranscript(ctx, s.judge, room.Topic, phase, messages)
	if err != nil {
		s.fail(ctx, roomID, phase, err)
		return nil, err
	}
	verdict.ID = uuid.NewString()
	verdict.RoomID = roomID
	verdict.CreatedAt = models.Stamp(s.now())

	if err := s.store.SaveVerdict(ctx, verdict); err != nil {
		if errors.Is(err, models.ErrVerdictExists) {
			log.Warn().Str("roomId", roomID).Str("phase", string(phase)).Msg("Phase already judged, skipping duplicate verdict")
			return nil, err
		}
		s.fail(ctx, roomID, phase, err)
		return nil, fmt.Errorf("save verdict: %w", err)
	}

	applied, err := s.outcome.ApplyVerdict(ctx, roomID, verdict)
	if err != nil {
		s.fail(ctx, roomID, phase, err)
		return verdict, err
	}
	if !applied {
		return verdict, ErrJudgingClosed
	}
	return verdict, nil
}

// JudgeTranscript asks judge to score one round and parses the answer. The raw response
// is returned even when it cannot be parsed.
func JudgeTranscript(ctx context.Context, judge Judge, topic string, phase models.Phase, messages []models.Message) (*models.Verdict, string, error) {
	pro, con := partitionTranscript(messages)
	raw, err := judge.Evaluate(ctx, buildJudgePrompt(topic, phase, pro, con))
	if err != nil {
		return nil, "", fmt.Errorf("judge %s: %w", phase, err)
	}
	verdict, err := ParseVerdict(raw)
	if err != nil {
		return nil, raw, err
	}
	verdict.Phase = phase
	verdict.Raw = raw
	return verdict, raw, nil
}

func (s *JudgeService) fail(ctx context.Context, roomID string, phase models.Phase, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), followUpTimeout)
	defer cancel()
	guard := models.JudgingGuard{RoomID: roomID, Phase: phase}
	marked, err := s.store.MarkJudgingFailed(ctx, guard, cause.Error(), models.Stamp(s.now()))
	if err != nil {
		log.Error().Err(err).Str("roomId", roomID).Str("phase", string(phase)).Msg("Failed to record judging failure")
		return
	}
	log.Warn().Err(cause).Str("roomId", roomID).Str("phase", string(phase)).Bool("recorded", marked).
		Msg("Judging failed, phase proceeds without damage")
}

// partitionTranscript splits party messages by side, keeping creation order. Spectator
// messages are dropped.
func partitionTranscript(messages []models.Message) (pro, con string) {
	var proB, conB strings.Builder
	for _, m := range messages {
		if m.AuthorSlot == models.SlotNone {
			continue
		}
		text := strings.TrimSpace(m.Content)
		if text == "" {
			continue
		}
		switch m.Side {
		case models.SidePro:
			proB.WriteString(text)
			proB.WriteString("\n")
		case models.SideCon:
			conB.WriteString(text)
			conB.WriteString("\n")
		}
	}
	pro = strings.TrimSpace(proB.String())
	con = strings.TrimSpace(conB.String())
	if pro == "" {
		pro = noArgument
	}
	if con == "" {
		con = noArgument
	}
	return pro, con
}

func buildJudgePrompt(topic string, phase models.Phase, pro, con string) string {
	if strings.TrimSpace(topic) == "" {
		topic = "Unspecified motion"
	}
	return fmt.Sprintf(
		`Act as a professional debate judge. Score the %s round of the following debate.

Motion: %s

Judgment Criteria (each worth 20%% of the score):
1. Clarity: how clearly the position and points are expressed
2. Logical coherence: validity and flow of the reasoning
3. Evidence strength: quality and relevance of supporting evidence
4. Originality: fresh angles and creative arguments
5. Persuasiveness: overall convincing power

Score each side from 0 to 100. A side that submitted no argument scores 0.

Required Output Format (STRICT JSON inside a json code block):
`+"```json"+`
{
  "winner": "pro" or "con",
  "pro_score": X,
  "con_score": Y,
  "rationale": "text"
}
`+"```"+`

Pro side:
%s

Con side:
%s`, phase, topic, pro, con)
}

type verdictPayload struct {
	Winner    string   `json:"winner"`
	ProScore  *float64 `json:"pro_score"`
	ConScore  *float64 `json:"con_score"`
	Rationale string   `json:"rationale"`
}

// ParseVerdict extracts and validates the structured verdict in a judge response
func ParseVerdict(raw string) (*models.Verdict, error) {
	block, ok := extractVerdictBlock(raw)
	if !ok {
		return nil, fmt.Errorf("%w: no verdict block in judge response", ErrMalformedVerdict)
	}
	var p verdictPayload
	if err := json.Unmarshal([]byte(block), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}
	winner := models.Side(strings.ToLower(strings.TrimSpace(p.Winner)))
	if !winner.Valid() {
		return nil, fmt.Errorf("%w: winner %q is not pro or con", ErrMalformedVerdict, p.Winner)
	}
	if p.ProScore == nil || p.ConScore == nil {
		return nil, fmt.Errorf("%w: missing score", ErrMalformedVerdict)
	}
	if math.IsNaN(*p.ProScore) || math.IsNaN(*p.ConScore) {
		return nil, fmt.Errorf("%w: score is not a number", ErrMalformedVerdict)
	}
	return &models.Verdict{
		WinningSide: winner,
		ProScore:    normalizeScore(*p.ProScore),
		ConScore:    normalizeScore(*p.ConScore),
		Rationale:   strings.TrimSpace(p.Rationale),
	}, nil
}

func normalizeScore(f float64) int {
	s := int(math.Round(f))
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
