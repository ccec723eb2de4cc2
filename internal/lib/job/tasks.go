package job

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TaskPaymentReceipt DMs the receiver of a /pagar transfer.
	TaskPaymentReceipt = "notify:payment_receipt"
	// TaskSanctionNotice DMs a member about a new sanction.
	TaskSanctionNotice = "notify:sanction"
)

// PaymentReceiptPayload is the JSON payload of a payment receipt task.
type PaymentReceiptPayload struct {
	GuildID    string `json:"guild_id"`
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Amount     int64  `json:"amount"`
	Tax        int64  `json:"tax"`
	Concept    string `json:"concept"`
}

// SanctionNoticePayload is the JSON payload of a sanction notice task.
type SanctionNoticePayload struct {
	GuildID     string `json:"guild_id"`
	UserID      string `json:"user_id"`
	ModeratorID string `json:"moderator_id"`
	SanctionID  int64  `json:"sanction_id"`
	Type        string `json:"type"`
	Reason      string `json:"reason"`
	ActiveCount int    `json:"active_count"`
}

// NewPaymentReceiptTask builds a low priority receipt task. Receipts are
// informational, so they retry a few times and are then discarded.
func NewPaymentReceiptTask(p PaymentReceiptPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskPaymentReceipt,
		payload,
		asynq.MaxRetry(3),
		asynq.Queue("low"),
		asynq.Timeout(30*time.Second),
	), nil
}

// NewSanctionNoticeTask builds a critical queue notice task.
func NewSanctionNoticeTask(p SanctionNoticePayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskSanctionNotice,
		payload,
		asynq.MaxRetry(5),
		asynq.Queue("critical"),
		asynq.Timeout(30*time.Second),
	), nil
}
