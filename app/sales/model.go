package sales

import (
	"fmt"
	"time"
)

// ConversationKey scopes one independent wizard run. Two topics inside the
// same chat are fully separate conversations; ThreadID is zero for chats
// without topics.
type ConversationKey struct {
	ChatID   int64
	ThreadID int
}

// String renders the key in "chatID_threadID" form, with "main" standing in
// for the no-topic case.
func (k ConversationKey) String() string {
	if k.ThreadID == 0 {
		return fmt.Sprintf("%d_main", k.ChatID)
	}
	return fmt.Sprintf("%d_%d", k.ChatID, k.ThreadID)
}

// Tranche is one scheduled future partial payment. DueDate stays a free-text
// label; calendar interpretation is deferred to the due-date evaluator.
type Tranche struct {
	Amount  float64 `json:"amount" db:"amount"`
	DueDate string  `json:"date" db:"due_date"`
}

// UnspecifiedDueDate labels the synthetic tranche absorbing any remainder
// the operator did not schedule explicitly.
const UnspecifiedDueDate = "не указано"

// Draft accumulates sale data while the wizard is in progress. Fields fill
// monotonically as steps complete; RemainingAmount is decremented live while
// tranches are recorded.
type Draft struct {
	ClientName      string
	MasterName      string
	PackageType     Package
	PracticesCount  int
	TotalAmount     float64
	PaidAmount      float64
	RemainingAmount float64
	Tranches        []Tranche
}

// Remainder returns the unpaid part of the sale.
func (d Draft) Remainder() float64 {
	return d.TotalAmount - d.PaidAmount
}

// Record is a completed sale as persisted. Append-only: corrections require
// a brand-new record.
type Record struct {
	ID              string    `json:"id" db:"id"`
	ClientName      string    `json:"clientName" db:"client_name"`
	MasterName      string    `json:"masterName" db:"master_name"`
	PackageType     Package   `json:"packageType" db:"package_type"`
	PracticesCount  int       `json:"practicesCount" db:"practices_count"`
	TotalAmount     float64   `json:"totalAmount" db:"total_amount"`
	PaidAmount      float64   `json:"paidAmount" db:"paid_amount"`
	RemainingAmount float64   `json:"remainingAmount" db:"remaining_amount"`
	Tranches        []Tranche `json:"remainderPayments" db:"-"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	ChatID          int64     `json:"chatId" db:"chat_id"`
	ThreadID        int       `json:"messageThreadId" db:"thread_id"`
}

// Key returns the conversation the record originated from.
func (r Record) Key() ConversationKey {
	return ConversationKey{ChatID: r.ChatID, ThreadID: r.ThreadID}
}
