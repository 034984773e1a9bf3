package conversation

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskflowhq/supportd/internal/identity"
	"github.com/taskflowhq/supportd/internal/intent"
)

// Trend thresholds for sentiment-based auto-escalation.
const (
	sentimentDropThreshold   = -0.4 // first sample to latest
	consecutiveNegativeLimit = 3
	negativeSentimentCutoff  = -0.2 // what counts as "negative"
)

// Store is the in-memory conversation store with cross-channel identity
// linking. All methods are safe for concurrent use; returned Conversations
// are deep copies.
//
// The Store tracks which conversations changed since the last DrainDirty
// call so a persister can snapshot only what moved.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	customerIndex map[string][]string // conversation ids, most recent last
	resolver      *identity.Resolver
	dirty         map[string]struct{}
	now           func() time.Time
}

// NewStore returns an empty Store sharing the given identity resolver.
func NewStore(resolver *identity.Resolver) *Store {
	return &Store{
		conversations: make(map[string]*Conversation),
		customerIndex: make(map[string][]string),
		resolver:      resolver,
		dirty:         make(map[string]struct{}),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// LinkIdentity records an alternate identifier (phone, secondary email) for
// a primary customer id.
func (s *Store) LinkIdentity(primary, alt string) {
	s.resolver.Link(primary, alt)
}

// IdentityLinks returns every recorded identity edge.
func (s *Store) IdentityLinks() [][2]string {
	return s.resolver.Links()
}

// ResolveCustomer maps any identifier to the canonical customer id: itself
// when it already has conversations, a linked identifier that does otherwise,
// or the identifier unchanged (a new customer).
func (s *Store) ResolveCustomer(identifier string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolveLocked(identifier)
}

// resolveLocked requires s.mu held (read or write). The resolver takes its
// own lock after the store's, never the other way around.
func (s *Store) resolveLocked(identifier string) string {
	return s.resolver.Resolve(identifier, func(id string) bool {
		_, ok := s.customerIndex[id]
		return ok
	})
}

// StartConversation opens a fresh conversation for a customer on a channel.
func (s *Store) StartConversation(customerID, channel, name, plan string) Conversation {
	cid := identity.Normalize(customerID)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(cid, channel, name, plan).Clone()
}

func (s *Store) startLocked(cid, channel, name, plan string) *Conversation {
	now := s.now()
	conv := &Conversation{
		ID:            uuid.New().String(),
		CustomerID:    cid,
		Channel:       channel,
		StartedAt:     now,
		LastMessageAt: now,
		Status:        StatusActive,
		Resolution:    ResolutionPending,
		ChannelsUsed:  []string{channel},
		CustomerName:  name,
		CustomerPlan:  plan,
	}
	s.conversations[conv.ID] = conv
	s.customerIndex[cid] = append(s.customerIndex[cid], conv.ID)
	s.dirty[conv.ID] = struct{}{}
	return conv
}

// GetConversation looks a conversation up by id.
func (s *Store) GetConversation(id string) (Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return Conversation{}, false
	}
	return conv.Clone(), true
}

// GetActiveConversation returns the most recent active (optionally also
// escalated) conversation for a customer. A non-empty channel narrows the
// search to conversations that have used that channel.
func (s *Store) GetActiveConversation(customerID, channel string, includeEscalated bool) (Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv := s.activeLocked(customerID, channel, includeEscalated)
	if conv == nil {
		return Conversation{}, false
	}
	return conv.Clone(), true
}

func (s *Store) activeLocked(customerID, channel string, includeEscalated bool) *Conversation {
	cid := s.resolveLocked(customerID)
	ids := s.customerIndex[cid]

	for i := len(ids) - 1; i >= 0; i-- {
		conv := s.conversations[ids[i]]
		if conv == nil {
			continue
		}
		if conv.Status != StatusActive && !(includeEscalated && conv.Status == StatusEscalated) {
			continue
		}
		if channel == "" || channel == conv.Channel || contains(conv.ChannelsUsed, channel) {
			return conv
		}
	}
	return nil
}

// GetLatestConversation returns the most recent conversation regardless of
// status.
func (s *Store) GetLatestConversation(customerID string) (Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cid := s.resolveLocked(customerID)
	ids := s.customerIndex[cid]
	for i := len(ids) - 1; i >= 0; i-- {
		if conv := s.conversations[ids[i]]; conv != nil {
			return conv.Clone(), true
		}
	}
	return Conversation{}, false
}

// GetOrCreateConversation reuses the customer's active or escalated
// conversation, recording the channel and backfilling name/plan when they
// were unknown, or starts a new one. Resolved conversations are never
// reopened.
func (s *Store) GetOrCreateConversation(customerID, channel, name, plan string) Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv := s.activeLocked(customerID, "", true); conv != nil {
		if !contains(conv.ChannelsUsed, channel) {
			conv.ChannelsUsed = append(conv.ChannelsUsed, channel)
		}
		if name != "" && conv.CustomerName == "" {
			conv.CustomerName = name
		}
		if plan != "" && conv.CustomerPlan == "" {
			conv.CustomerPlan = plan
		}
		s.dirty[conv.ID] = struct{}{}
		return conv.Clone()
	}

	return s.startLocked(identity.Normalize(customerID), channel, name, plan).Clone()
}

// AddMessage appends a message to a conversation, stamping it with the
// current time, and updates channel usage, sentiment history (customer
// messages only) and discussed topics.
func (s *Store) AddMessage(conversationID string, m Message) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return Message{}, fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}

	if m.Timestamp.IsZero() {
		m.Timestamp = s.now()
	}
	// Timestamps within a conversation never go backwards.
	if m.Timestamp.Before(conv.LastMessageAt) {
		m.Timestamp = conv.LastMessageAt
	}

	conv.Messages = append(conv.Messages, m)
	conv.LastMessageAt = m.Timestamp

	if !contains(conv.ChannelsUsed, m.Channel) {
		conv.ChannelsUsed = append(conv.ChannelsUsed, m.Channel)
	}

	if m.Role == RoleCustomer {
		conv.SentimentHistory = append(conv.SentimentHistory, SentimentSample{
			Score:        m.Sentiment,
			Timestamp:    m.Timestamp,
			MessageIndex: len(conv.Messages) - 1,
		})
	}

	if m.Intent != "" && !intent.LowValue(m.Intent) && !contains(conv.Topics, m.Intent) {
		conv.Topics = append(conv.Topics, m.Intent)
	}

	s.dirty[conv.ID] = struct{}{}
	return m, nil
}

// CheckSentimentTrend analyzes a conversation's sentiment history and returns
// an escalation recommendation. Unknown conversations and conversations
// without samples report a neutral trend, not an error.
func (s *Store) CheckSentimentTrend(conversationID string) TrendReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok || len(conv.SentimentHistory) == 0 {
		return TrendReport{Trend: TrendNeutral}
	}

	scores := make([]float64, len(conv.SentimentHistory))
	for i, sample := range conv.SentimentHistory {
		scores[i] = sample.Score
	}

	consecutive := 0
	for i := len(scores) - 1; i >= 0; i-- {
		if scores[i] >= negativeSentimentCutoff {
			break
		}
		consecutive++
	}
	if consecutive >= consecutiveNegativeLimit {
		return TrendReport{
			ShouldEscalate: true,
			Reason: fmt.Sprintf("Customer sent %d consecutive negative messages (sentiment trending down)",
				consecutive),
			Trend:               TrendDeclining,
			ConsecutiveNegative: consecutive,
		}
	}

	if len(scores) >= 2 {
		first, latest := scores[0], scores[len(scores)-1]
		if drop := latest - first; drop <= sentimentDropThreshold {
			return TrendReport{
				ShouldEscalate: true,
				Reason: fmt.Sprintf("Sentiment dropped significantly: %+.2f to %+.2f (drop %+.2f)",
					first, latest, drop),
				Trend: TrendDeclining,
				Drop:  drop,
			}
		}
	}

	trend := TrendInsufficientData
	if len(scores) >= 2 {
		half := len(scores) / 2
		avgFirst := mean(scores[:half])
		avgSecond := mean(scores[half:])
		switch {
		case avgSecond < avgFirst-0.2:
			trend = TrendDeclining
		case avgSecond > avgFirst+0.2:
			trend = TrendImproving
		default:
			trend = TrendStable
		}
	}
	return TrendReport{Trend: trend}
}

// CrossChannelContext returns a continuity sentence when the customer's
// active conversation carries customer messages from a channel other than the
// current one, and false when there is nothing to reference.
func (s *Store) CrossChannelContext(customerID, currentChannel string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv := s.activeLocked(customerID, "", true)
	if conv == nil || len(conv.Messages) == 0 {
		return "", false
	}

	prevChannel := ""
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		m := conv.Messages[i]
		if m.Role == RoleCustomer && m.Channel != currentChannel {
			prevChannel = m.Channel
			break
		}
	}
	if prevChannel == "" {
		return "", false
	}

	if len(conv.Topics) > 0 {
		topics := conv.Topics
		if len(topics) > 3 {
			topics = topics[:3]
		}
		readable := make([]string, len(topics))
		for i, t := range topics {
			readable[i] = strings.ReplaceAll(t, "_", " ")
		}
		return fmt.Sprintf("I see you contacted us earlier via %s about %s. Let me help you further.",
			prevChannel, strings.Join(readable, ", ")), true
	}
	return fmt.Sprintf("I see you contacted us earlier via %s. Let me continue helping you.",
		prevChannel), true
}

// CustomerHistory aggregates all conversations for a customer: summaries in
// start order, deduplicated topics, sorted channels, and the sentiment
// samples across conversations in time order.
func (s *Store) CustomerHistory(customerID string) CustomerHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cid := s.resolveLocked(customerID)
	// Slices start non-nil so an unknown customer serializes with empty
	// arrays instead of nulls.
	h := CustomerHistory{
		CustomerID:     cid,
		Conversations:  []ConversationSummary{},
		Topics:         []string{},
		Channels:       []string{},
		SentimentTrend: []SentimentSample{},
	}

	channels := make(map[string]struct{})
	seenTopics := make(map[string]struct{})

	for _, id := range s.customerIndex[cid] {
		conv := s.conversations[id]
		if conv == nil {
			continue
		}

		h.Conversations = append(h.Conversations, ConversationSummary{
			ID:            conv.ID,
			Channel:       conv.Channel,
			ChannelsUsed:  append([]string(nil), conv.ChannelsUsed...),
			StartedAt:     conv.StartedAt,
			LastMessageAt: conv.LastMessageAt,
			Status:        conv.Status,
			Resolution:    conv.Resolution,
			MessageCount:  len(conv.Messages),
			Topics:        append([]string(nil), conv.Topics...),
		})

		for _, t := range conv.Topics {
			if _, dup := seenTopics[t]; !dup {
				seenTopics[t] = struct{}{}
				h.Topics = append(h.Topics, t)
			}
		}
		for _, c := range conv.ChannelsUsed {
			channels[c] = struct{}{}
		}
		h.SentimentTrend = append(h.SentimentTrend, conv.SentimentHistory...)

		if conv.LastMessageAt.After(h.LastContact) {
			h.LastContact = conv.LastMessageAt
		}
	}

	h.ConversationCount = len(h.Conversations)
	for c := range channels {
		h.Channels = append(h.Channels, c)
	}
	sort.Strings(h.Channels)
	sort.SliceStable(h.SentimentTrend, func(i, j int) bool {
		return h.SentimentTrend[i].Timestamp.Before(h.SentimentTrend[j].Timestamp)
	})
	return h
}

// ResolveConversation marks a conversation solved and closed.
func (s *Store) ResolveConversation(conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}
	conv.Status = StatusResolved
	conv.Resolution = ResolutionSolved
	s.dirty[conv.ID] = struct{}{}
	return nil
}

// EscalateConversation marks a conversation escalated and returns the
// escalation id, generating one when the caller passes none.
func (s *Store) EscalateConversation(conversationID, reason, escalationID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return "", fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}

	if escalationID == "" {
		escalationID = NewEscalationID()
	}
	conv.Status = StatusEscalated
	conv.Resolution = ResolutionEscalated
	conv.EscalationID = escalationID
	conv.EscalationReason = reason
	s.dirty[conv.ID] = struct{}{}
	return escalationID, nil
}

// NewEscalationID mints a ticket-style escalation id like ESC-3F2A91BC.
func NewEscalationID() string {
	u := uuid.New()
	return fmt.Sprintf("ESC-%X", u[:4])
}

// Summary renders a short human-readable description of a conversation.
func (s *Store) Summary(conversationID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return "Conversation not found."
	}

	customerMsgs := 0
	for _, m := range conv.Messages {
		if m.Role == RoleCustomer {
			customerMsgs++
		}
	}

	name := conv.CustomerName
	if name == "" {
		name = conv.CustomerID
	}
	plan := conv.CustomerPlan
	if plan == "" {
		plan = "unknown"
	}
	topics := strings.Join(conv.Topics, ", ")
	if topics == "" {
		topics = "none"
	}

	lines := []string{
		fmt.Sprintf("Conversation %.8s...", conv.ID),
		"  Customer: " + name,
		"  Plan: " + plan,
		"  Channels: " + strings.Join(conv.ChannelsUsed, ", "),
		fmt.Sprintf("  Status: %s (%s)", conv.Status, conv.Resolution),
		fmt.Sprintf("  Messages: %d customer, %d agent", customerMsgs, len(conv.Messages)-customerMsgs),
		"  Topics: " + topics,
	}
	if n := len(conv.SentimentHistory); n > 0 {
		sum := 0.0
		for _, sample := range conv.SentimentHistory {
			sum += sample.Score
		}
		lines = append(lines, fmt.Sprintf("  Sentiment: %+.2f to %+.2f (avg: %+.2f)",
			conv.SentimentHistory[0].Score, conv.SentimentHistory[n-1].Score, sum/float64(n)))
	}
	if conv.EscalationID != "" {
		lines = append(lines, fmt.Sprintf("  Escalation: %s (%s)", conv.EscalationID, conv.EscalationReason))
	}
	return strings.Join(lines, "\n")
}

// Stats returns aggregate counters over all conversations.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		Total:           len(s.conversations),
		UniqueCustomers: len(s.customerIndex),
	}
	for _, conv := range s.conversations {
		switch conv.Status {
		case StatusActive:
			st.Active++
		case StatusEscalated:
			st.Escalated++
		case StatusResolved:
			st.Resolved++
		}
	}
	return st
}

// DrainDirty returns the ids of conversations changed since the previous
// call and resets the dirty set.
func (s *Store) DrainDirty() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.dirty) == 0 {
		return nil
	}
	ids := make([]string, 0, len(s.dirty))
	for id := range s.dirty {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	s.dirty = make(map[string]struct{})
	return ids
}

// Restore replaces the store contents with previously persisted
// conversations, rebuilding the per-customer index in start order. Restored
// conversations are not marked dirty.
func (s *Store) Restore(convs []Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = make(map[string]*Conversation, len(convs))
	s.customerIndex = make(map[string][]string)
	s.dirty = make(map[string]struct{})

	sorted := append([]Conversation(nil), convs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartedAt.Before(sorted[j].StartedAt)
	})
	for i := range sorted {
		conv := sorted[i].Clone()
		s.conversations[conv.ID] = &conv
		s.customerIndex[conv.CustomerID] = append(s.customerIndex[conv.CustomerID], conv.ID)
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
