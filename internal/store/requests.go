package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/preskrba/internal/model"
)

// RequestLine names a product and the quantity a branch asks for.
type RequestLine struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Note      string `json:"note"`
}

// RequestInput describes a request to create.
type RequestInput struct {
	LocationID int64         `json:"location_id"`
	Lines      []RequestLine `json:"lines"`
	Priority   string        `json:"priority"`
	Notes      string        `json:"notes"`
}

// RequestFilter narrows ListRequests. Zero values match everything.
type RequestFilter struct {
	LocationID int64
	Statuses   []string
}

const requestColumns = `r.id, r.request_id, r.location_id, r.priority, r.status, r.notes, r.reject_reason,
		        r.created_by, r.requested_at, r.approved_at, r.approved_by, r.rejected_at, r.rejected_by,
		        r.fulfilled_at, r.fulfilled_by, r.received_at, r.received_by, l.name AS location_name`

// CreateRequest records a branch's request for stock. Nothing is reserved.
func CreateRequest(ctx context.Context, db *sql.DB, actor model.Actor, in RequestInput) (*model.Request, error) {
	if !model.RoleAtLeast(actor.Role, model.RoleSupervisor) {
		return nil, unauthorizedf("creating requests requires the %s role", model.RoleSupervisor)
	}
	if in.LocationID <= 0 {
		return nil, validationf("location_id is required")
	}
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}
	if !model.ValidPriority(in.Priority) {
		return nil, validationf("unknown priority %q", in.Priority)
	}
	if len(in.Lines) == 0 {
		return nil, validationf("at least one line is required")
	}
	for _, l := range in.Lines {
		if l.ProductID <= 0 {
			return nil, validationf("product_id is required on every line")
		}
		if l.Quantity <= 0 {
			return nil, validationf("quantity must be positive (product %d)", l.ProductID)
		}
	}
	if !actor.ActsFor(in.LocationID) {
		return nil, unauthorizedf("%s cannot request stock for location %d", actor.Username, in.LocationID)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistence("beginning transaction", err)
	}
	defer tx.Rollback()

	loc, err := GetLocation(ctx, tx, in.LocationID)
	if err != nil {
		return nil, persistence("loading location", err)
	}
	if loc == nil || loc.DeletedAt != nil {
		return nil, notFoundf("location %d", in.LocationID)
	}
	if loc.Type != model.LocationTypeBranch {
		return nil, validationf("only branches can request stock")
	}

	for _, l := range in.Lines {
		product, err := GetProduct(ctx, tx, l.ProductID)
		if err != nil {
			return nil, persistence("loading product", err)
		}
		if product == nil || product.DeletedAt != nil {
			return nil, notFoundf("product %d", l.ProductID)
		}
		if product.Status != model.ProductStatusActive {
			return nil, validationf("product %q is %s", product.Name, product.Status)
		}
	}

	requestID := newTransferID(requestPrefix, loc.Code)
	result, err := tx.ExecContext(ctx,
		`INSERT INTO requests (request_id, location_id, priority, status, notes, created_by, requested_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		requestID, loc.ID, in.Priority, model.RequestPending, in.Notes, actorRef(actor), time.Now().UTC(),
	)
	if err != nil {
		return nil, persistence("recording request", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, persistence("getting request id", err)
	}

	for i, l := range in.Lines {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO request_items (request_id, line, product_id, quantity, note) VALUES (?, ?, ?, ?, ?)`,
			id, i+1, l.ProductID, l.Quantity, l.Note,
		)
		if err != nil {
			return nil, persistence("recording request line", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, persistence("committing request", err)
	}
	return GetRequest(ctx, db, requestID)
}

// ApproveRequest moves a pending request to approved, making it receivable.
func ApproveRequest(ctx context.Context, db *sql.DB, actor model.Actor, requestID string) (*model.Request, error) {
	if !model.RoleAtLeast(actor.Role, model.RoleManager) {
		return nil, unauthorizedf("approving requests requires the %s role", model.RoleManager)
	}
	now := time.Now().UTC()
	return transitionRequest(ctx, db, requestID, model.RequestApproved,
		`approved_at = ?, approved_by = ?`, now, actorRef(actor))
}

// RejectRequest moves a pending request to rejected. A reason is required.
func RejectRequest(ctx context.Context, db *sql.DB, actor model.Actor, requestID, reason string) (*model.Request, error) {
	if !model.RoleAtLeast(actor.Role, model.RoleManager) {
		return nil, unauthorizedf("rejecting requests requires the %s role", model.RoleManager)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, validationf("a rejection reason is required")
	}
	now := time.Now().UTC()
	return transitionRequest(ctx, db, requestID, model.RequestRejected,
		`rejected_at = ?, rejected_by = ?, reject_reason = ?`, now, actorRef(actor), reason)
}

// FulfillRequest moves an approved request to fulfilled. Fulfilment counts as
// receipt: the branch is credited in the same transaction, and a later
// ConfirmReceipt reports ErrAlreadyReceived.
func FulfillRequest(ctx context.Context, db *sql.DB, actor model.Actor, requestID string) (*model.Request, error) {
	if !model.RoleAtLeast(actor.Role, model.RoleManager) {
		return nil, unauthorizedf("fulfilling requests requires the %s role", model.RoleManager)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistence("beginning transaction", err)
	}
	defer tx.Rollback()

	r, err := GetRequest(ctx, tx, requestID)
	if err != nil {
		return nil, persistence("loading request", err)
	}
	if r == nil {
		return nil, notFoundf("request %s", requestID)
	}
	transitionErr := &TransitionError{Kind: model.KindRequest, ID: requestID, From: r.Status, To: model.RequestFulfilled}
	if !model.CanTransitionRequest(r.Status, model.RequestFulfilled) {
		return nil, transitionErr
	}

	swapped, err := receiveRequest(ctx, tx, actor, r)
	if err != nil {
		return nil, err
	}
	if !swapped {
		return nil, transitionErr
	}

	if err := tx.Commit(); err != nil {
		return nil, persistence("committing fulfilment", err)
	}
	return GetRequest(ctx, db, requestID)
}

// transitionRequest applies a status change guarded by the request's current
// status. set holds the extra column assignments, bound to args.
func transitionRequest(ctx context.Context, db *sql.DB, requestID, to, set string, args ...any) (*model.Request, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistence("beginning transaction", err)
	}
	defer tx.Rollback()

	r, err := GetRequest(ctx, tx, requestID)
	if err != nil {
		return nil, persistence("loading request", err)
	}
	if r == nil {
		return nil, notFoundf("request %s", requestID)
	}
	transitionErr := &TransitionError{Kind: model.KindRequest, ID: requestID, From: r.Status, To: to}
	if !model.CanTransitionRequest(r.Status, to) {
		return nil, transitionErr
	}

	args = append([]any{to}, args...)
	args = append(args, r.ID, r.Status)
	result, err := tx.ExecContext(ctx,
		`UPDATE requests SET status = ?, `+set+` WHERE id = ? AND status = ?`, args...)
	if err != nil {
		return nil, persistence("updating request status", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, persistence("updating request status", err)
	}
	if n == 0 {
		return nil, transitionErr
	}

	if err := tx.Commit(); err != nil {
		return nil, persistence("committing request status", err)
	}
	return GetRequest(ctx, db, requestID)
}

// GetRequest returns a request with its lines by request ID.
func GetRequest(ctx context.Context, q Querier, requestID string) (*model.Request, error) {
	r := &model.Request{}
	err := scanRequest(q.QueryRowContext(ctx,
		`SELECT `+requestColumns+`
		 FROM requests r
		 JOIN locations l ON l.id = r.location_id
		 WHERE r.request_id = ?`, requestID,
	), r)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting request: %w", err)
	}

	if r.Items, err = requestItems(ctx, q, r.ID); err != nil {
		return nil, err
	}
	return r, nil
}

// ListRequests returns requests with their lines, newest first.
func ListRequests(ctx context.Context, q Querier, f RequestFilter) ([]model.Request, error) {
	query := `SELECT ` + requestColumns + `
	          FROM requests r
	          JOIN locations l ON l.id = r.location_id
	          WHERE 1=1`
	var args []any
	if f.LocationID > 0 {
		query += ` AND r.location_id = ?`
		args = append(args, f.LocationID)
	}
	if len(f.Statuses) > 0 {
		query += ` AND r.status IN (?` + strings.Repeat(", ?", len(f.Statuses)-1) + `)`
		for _, s := range f.Statuses {
			args = append(args, s)
		}
	}
	query += ` ORDER BY r.requested_at DESC, r.id DESC`

	requests, err := queryRequests(ctx, q, query, args...)
	if err != nil {
		return nil, err
	}
	for i := range requests {
		if requests[i].Items, err = requestItems(ctx, q, requests[i].ID); err != nil {
			return nil, err
		}
	}
	return requests, nil
}

func queryRequests(ctx context.Context, q Querier, query string, args ...any) ([]model.Request, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}
	defer rows.Close()

	var requests []model.Request
	for rows.Next() {
		var r model.Request
		if err := scanRequest(rows, &r); err != nil {
			return nil, fmt.Errorf("scanning request: %w", err)
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func scanRequest(row rowScanner, r *model.Request) error {
	var notes, reason sql.NullString
	if err := row.Scan(&r.ID, &r.RequestID, &r.LocationID, &r.Priority, &r.Status, &notes, &reason,
		&r.CreatedBy, &r.RequestedAt, &r.ApprovedAt, &r.ApprovedBy, &r.RejectedAt, &r.RejectedBy,
		&r.FulfilledAt, &r.FulfilledBy, &r.ReceivedAt, &r.ReceivedBy, &r.LocationName); err != nil {
		return err
	}
	r.Notes = notes.String
	r.RejectReason = reason.String
	return nil
}

func requestItems(ctx context.Context, q Querier, id int64) ([]model.RequestItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT ri.line, ri.product_id, ri.quantity, ri.note, p.name, p.price
		 FROM request_items ri
		 JOIN products p ON p.id = ri.product_id
		 WHERE ri.request_id = ?
		 ORDER BY ri.line`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("listing request lines: %w", err)
	}
	defer rows.Close()

	var items []model.RequestItem
	for rows.Next() {
		var it model.RequestItem
		var note sql.NullString
		if err := rows.Scan(&it.Line, &it.ProductID, &it.Quantity, &note, &it.ProductName, &it.Price); err != nil {
			return nil, fmt.Errorf("scanning request line: %w", err)
		}
		it.Note = note.String
		items = append(items, it)
	}
	return items, rows.Err()
}
