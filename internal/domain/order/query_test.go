package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsena-dev/backend/internal/domain/account"
)

type fakeRepo struct {
	orders  map[string]*Order
	updated *Order
}

func newFakeRepo(orders ...*Order) *fakeRepo {
	r := &fakeRepo{orders: make(map[string]*Order, len(orders))}
	for _, o := range orders {
		r.orders[o.ID] = o
	}
	return r
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeRepo) ListByClient(_ context.Context, clientID string) ([]*Order, error) {
	return r.filter(func(o *Order) bool { return o.ClientID == clientID }), nil
}

func (r *fakeRepo) ListByVendor(_ context.Context, vendorID string) ([]*Order, error) {
	return r.filter(func(o *Order) bool { return o.VendorID == vendorID }), nil
}

func (r *fakeRepo) ListAll(_ context.Context) ([]*Order, error) {
	return r.filter(func(*Order) bool { return true }), nil
}

func (r *fakeRepo) Update(_ context.Context, o *Order) error {
	cp := *o
	r.orders[o.ID] = &cp
	r.updated = &cp
	return nil
}

func (r *fakeRepo) filter(keep func(*Order) bool) []*Order {
	var out []*Order
	for _, o := range r.orders {
		if keep(o) {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out
}

func testOrder(id, clientID, vendorID string, status Status) *Order {
	return &Order{
		ID:       id,
		Number:   "CMD" + id,
		ClientID: clientID,
		VendorID: vendorID,
		Status:   status,
	}
}

func TestList_FiltersByRole(t *testing.T) {
	repo := newFakeRepo(
		testOrder("o1", "c-1", "v-1", StatusPending),
		testOrder("o2", "c-2", "v-1", StatusPending),
		testOrder("o3", "c-1", "v-2", StatusShipped),
	)
	svc := NewService(nil, repo, nil)
	ctx := context.Background()

	client, err := svc.List(ctx, account.Actor{AccountID: "c-1", Role: account.RoleClient})
	require.NoError(t, err)
	assert.Len(t, client, 2)

	vendor, err := svc.List(ctx, account.Actor{AccountID: "v-1", Role: account.RoleVendor})
	require.NoError(t, err)
	assert.Len(t, vendor, 2)

	admin, err := svc.List(ctx, account.Actor{AccountID: "a-1", Role: account.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, admin, 3)
}

func TestGet_Visibility(t *testing.T) {
	repo := newFakeRepo(testOrder("o1", "c-1", "v-1", StatusPending))
	svc := NewService(nil, repo, nil)
	ctx := context.Background()

	for _, actor := range []account.Actor{
		{AccountID: "c-1", Role: account.RoleClient},
		{AccountID: "v-1", Role: account.RoleVendor},
		{AccountID: "a-1", Role: account.RoleAdmin},
	} {
		o, err := svc.Get(ctx, actor, "o1")
		require.NoError(t, err)
		assert.Equal(t, "o1", o.ID)
	}

	// An unrelated viewer cannot even learn that the order exists.
	_, err := svc.Get(ctx, account.Actor{AccountID: "c-2", Role: account.RoleClient}, "o1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(ctx, account.Actor{AccountID: "c-1", Role: account.RoleClient}, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatus_OwningVendor(t *testing.T) {
	repo := newFakeRepo(testOrder("o1", "c-1", "v-1", StatusPending))
	svc := NewService(nil, repo, nil)

	tracking := "TRK-42"
	o, err := svc.UpdateStatus(context.Background(),
		account.Actor{AccountID: "v-1", Role: account.RoleVendor},
		"o1",
		StatusUpdate{Status: "shipped", TrackingNumber: &tracking})
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, o.Status)
	assert.Equal(t, "TRK-42", o.TrackingNumber)
	require.NotNil(t, repo.updated)
	assert.Equal(t, StatusShipped, repo.updated.Status)
}

func TestUpdateStatus_DeliveredSetsActualDelivery(t *testing.T) {
	repo := newFakeRepo(testOrder("o1", "c-1", "v-1", StatusShipped))
	svc := NewService(nil, repo, nil)

	o, err := svc.UpdateStatus(context.Background(),
		account.Actor{AccountID: "v-1", Role: account.RoleVendor},
		"o1",
		StatusUpdate{Status: "delivered"})
	require.NoError(t, err)
	require.NotNil(t, o.ActualDelivery)
}

func TestUpdateStatus_Forbidden(t *testing.T) {
	repo := newFakeRepo(testOrder("o1", "c-1", "v-1", StatusPending))
	svc := NewService(nil, repo, nil)
	ctx := context.Background()

	// Another vendor.
	_, err := svc.UpdateStatus(ctx,
		account.Actor{AccountID: "v-2", Role: account.RoleVendor},
		"o1", StatusUpdate{Status: "confirmed"})
	assert.ErrorIs(t, err, ErrForbidden)

	// The buyer.
	_, err = svc.UpdateStatus(ctx,
		account.Actor{AccountID: "c-1", Role: account.RoleClient},
		"o1", StatusUpdate{Status: "cancelled"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateStatus_TerminalIsFinal(t *testing.T) {
	repo := newFakeRepo(testOrder("o1", "c-1", "v-1", StatusDelivered))
	svc := NewService(nil, repo, nil)

	_, err := svc.UpdateStatus(context.Background(),
		account.Actor{AccountID: "a-1", Role: account.RoleAdmin},
		"o1", StatusUpdate{Status: "pending"})

	var transErr *InvalidTransitionError
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, StatusDelivered, transErr.From)
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	repo := newFakeRepo(testOrder("o1", "c-1", "v-1", StatusPending))
	svc := NewService(nil, repo, nil)

	_, err := svc.UpdateStatus(context.Background(),
		account.Actor{AccountID: "v-1", Role: account.RoleVendor},
		"o1", StatusUpdate{Status: "teleported"})

	var statusErr *InvalidStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "teleported", statusErr.Value)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("confirmed")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, s)

	_, err = ParseStatus("")
	assert.Error(t, err)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusShipped.Terminal())
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusRefunded.Terminal())
}
