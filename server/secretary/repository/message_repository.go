package repository

import (
	"context"
	"encoding/json"

	"secretary_server/server/secretary/domain"
)

// feedLimit bounds the per-tenant inbound message list.
const feedLimit = 500

type MessageRepository struct {
	stores Stores
}

func NewMessageRepository(stores Stores) *MessageRepository {
	return &MessageRepository{stores: stores}
}

func (r *MessageRepository) AppendInbound(ctx context.Context, msg domain.InboundMessage) error {
	store, err := r.stores.ForTenant(ctx, msg.TenantID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	key := feedKey(msg.TenantID)
	if err := store.LPush(ctx, key, string(raw)); err != nil {
		return err
	}
	return store.LTrim(ctx, key, 0, feedLimit-1)
}

func (r *MessageRepository) RecentInbound(ctx context.Context, tenantID string, limit int) ([]domain.InboundMessage, error) {
	store, err := r.stores.ForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	raws, err := store.LRange(ctx, feedKey(tenantID), 0, int64(limit)-1)
	if err != nil {
		return nil, err
	}
	messages := make([]domain.InboundMessage, 0, len(raws))
	for _, raw := range raws {
		var msg domain.InboundMessage
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (r *MessageRepository) PutAnalysis(ctx context.Context, messageID string, analysis domain.MessageAnalysis) error {
	return r.stores.Shared().SetJSON(ctx, analysisKey(messageID), analysis, analysisTTL)
}

func (r *MessageRepository) GetAnalysis(ctx context.Context, messageID string) (domain.MessageAnalysis, bool, error) {
	var analysis domain.MessageAnalysis
	found, err := r.stores.Shared().GetJSON(ctx, analysisKey(messageID), &analysis)
	return analysis, found, err
}

func (r *MessageRepository) PutRelayed(ctx context.Context, tenantID string, msg domain.RelayedMessage) error {
	store, err := r.stores.ForTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	return store.SetJSON(ctx, relayedMessageKey(tenantID, msg.MessageID), msg, relayedTTL)
}

func (r *MessageRepository) GetRelayed(ctx context.Context, tenantID, messageID string) (domain.RelayedMessage, error) {
	store, err := r.stores.ForTenant(ctx, tenantID)
	if err != nil {
		return domain.RelayedMessage{}, err
	}
	var msg domain.RelayedMessage
	found, err := store.GetJSON(ctx, relayedMessageKey(tenantID, messageID), &msg)
	if err != nil {
		return domain.RelayedMessage{}, err
	}
	if !found {
		return domain.RelayedMessage{}, ErrNotFound
	}
	return msg, nil
}

// ListRelayed scans the relayed-message key family. Key enumeration is fine
// at this volume; the records carry a 30 day TTL.
func (r *MessageRepository) ListRelayed(ctx context.Context, tenantID string) ([]domain.RelayedMessage, error) {
	store, err := r.stores.ForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	keys, err := store.Keys(ctx, relayedMessagePattern(tenantID))
	if err != nil {
		return nil, err
	}
	messages := make([]domain.RelayedMessage, 0, len(keys))
	for _, key := range keys {
		var msg domain.RelayedMessage
		found, err := store.GetJSON(ctx, key, &msg)
		if err != nil {
			return nil, err
		}
		if found {
			messages = append(messages, msg)
		}
	}
	return messages, nil
}

func (r *MessageRepository) PutApproval(ctx context.Context, approval domain.ApprovalRequest) error {
	return r.stores.Shared().SetJSON(ctx, approvalKey(approval.ID), approval, approvalTTL)
}

func (r *MessageRepository) GetApproval(ctx context.Context, approvalID string) (domain.ApprovalRequest, error) {
	var approval domain.ApprovalRequest
	found, err := r.stores.Shared().GetJSON(ctx, approvalKey(approvalID), &approval)
	if err != nil {
		return domain.ApprovalRequest{}, err
	}
	if !found {
		return domain.ApprovalRequest{}, ErrNotFound
	}
	return approval, nil
}

func (r *MessageRepository) DeleteApproval(ctx context.Context, approvalID string) error {
	return r.stores.Shared().Del(ctx, approvalKey(approvalID))
}

// AppendThinking records an executive decision pattern, keeping the most
// recent hundred entries.
func (r *MessageRepository) AppendThinking(ctx context.Context, tenantID, executiveID string, pattern domain.ThinkingPattern) error {
	store, err := r.stores.ForTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(pattern)
	if err != nil {
		return err
	}
	key := thinkingKey(tenantID, executiveID)
	if err := store.LPush(ctx, key, string(raw)); err != nil {
		return err
	}
	return store.LTrim(ctx, key, 0, 99)
}

func (r *MessageRepository) RecentThinking(ctx context.Context, tenantID, executiveID string, limit int) ([]domain.ThinkingPattern, error) {
	store, err := r.stores.ForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	raws, err := store.LRange(ctx, thinkingKey(tenantID, executiveID), 0, int64(limit)-1)
	if err != nil {
		return nil, err
	}
	patterns := make([]domain.ThinkingPattern, 0, len(raws))
	for _, raw := range raws {
		var pattern domain.ThinkingPattern
		if err := json.Unmarshal([]byte(raw), &pattern); err != nil {
			continue
		}
		patterns = append(patterns, pattern)
	}
	return patterns, nil
}
