package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/internal/repo"
	"github.com/Alijeyrad/destek_backend/internal/repo/memory"
	"github.com/Alijeyrad/destek_backend/internal/service/audit"
	"github.com/Alijeyrad/destek_backend/internal/service/notification"
	"github.com/Alijeyrad/destek_backend/pkg/dispatch"
	"github.com/Alijeyrad/destek_backend/pkg/email"
	"github.com/Alijeyrad/destek_backend/pkg/util/password"
)

type outbox struct{ sent []email.Message }

func (o *outbox) Enabled() bool { return true }

func (o *outbox) Send(_ context.Context, m email.Message) error {
	o.sent = append(o.sent, m)
	return nil
}

var (
	admin = model.Actor{ID: "adm", Email: "ops@dnadestek.com", Role: model.RoleAdmin}
	board = model.Actor{ID: "brd", Role: model.RoleAdminBoard}
)

func setup(t *testing.T) (*repo.Client, *outbox, Service) {
	t.Helper()
	db := memory.New()
	mail := &outbox{}
	hasher := password.NewHasher(password.Config{MemoryKiB: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	n := notification.New(notification.Deps{DB: db, Dispatch: dispatch.Inline{}, Mail: mail})
	svc := New(db, hasher, audit.New(db, dispatch.Inline{}), n, Config{AppName: "DNA DESTEK", PasswordLength: 12})
	return db, mail, svc
}

func TestProvision(t *testing.T) {
	db, mail, svc := setup(t)
	ctx := context.Background()

	res, err := svc.Provision(ctx, admin, ProvisionRequest{
		Email: "Usta@Example.com", FirstName: "Mehmet", Role: "teknisyen", Specialty: "tesisat", Phone: "05321234567",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleTechnician, res.Profile.Role)
	assert.Equal(t, "usta@example.com", res.Profile.Email)
	assert.Equal(t, "+905321234567", res.Profile.Phone)
	assert.Len(t, res.Password, 12)
	assert.Equal(t, "adm", res.Profile.CreatedBy)

	acc, err := db.Accounts.GetByEmail(ctx, "usta@example.com")
	require.NoError(t, err)
	assert.Equal(t, res.Profile.ID, acc.ID)

	require.Len(t, mail.sent, 1)
	assert.Equal(t, []string{"usta@example.com"}, mail.sent[0].To)
	assert.Contains(t, mail.sent[0].TextBody, res.Password)

	_, err = svc.Provision(ctx, admin, ProvisionRequest{Email: "usta@example.com", FirstName: "X"})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)

	_, err = svc.Provision(ctx, board, ProvisionRequest{Email: "b@example.com", FirstName: "X"})
	assert.ErrorIs(t, err, ErrForbidden)

	res, err = svc.Provision(ctx, admin, ProvisionRequest{Email: "x@example.com", FirstName: "X", Role: "superuser", Password: "verilen-sifre"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleCustomer, res.Profile.Role)
	assert.Empty(t, res.Password)
}

func TestSelfService(t *testing.T) {
	db, _, svc := setup(t)
	ctx := context.Background()
	require.NoError(t, db.Users.Create(ctx, &model.Profile{ID: "c1", Email: "c1@example.com", FirstName: "Ali", Role: model.RoleCustomer, Active: true}))
	me := model.Actor{ID: "c1", Role: model.RoleCustomer}

	name, ph := "Veli", "0532 123 45 67"
	p, err := svc.UpdateMe(ctx, me, UpdateMeRequest{FirstName: &name, Phone: &ph})
	require.NoError(t, err)
	assert.Equal(t, "Veli", p.FirstName)
	assert.Equal(t, "+905321234567", p.Phone)

	bad := "12"
	_, err = svc.UpdateMe(ctx, me, UpdateMeRequest{Phone: &bad})
	assert.ErrorIs(t, err, ErrInvalidPhone)

	assert.ErrorIs(t, svc.RegisterPushToken(ctx, me, "fcm-token"), ErrInvalidPushToken)
	require.NoError(t, svc.RegisterPushToken(ctx, me, "ExponentPushToken[c1]"))
	stored, err := db.Users.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "ExponentPushToken[c1]", stored.PushToken)

	_, err = svc.List(ctx, me, ListRequest{})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSetRoleAndActive(t *testing.T) {
	db, _, svc := setup(t)
	ctx := context.Background()
	require.NoError(t, db.Users.Create(ctx, &model.Profile{ID: "u1", Email: "u1@example.com", Role: model.RoleCustomer, Active: true}))

	p, err := svc.SetRole(ctx, admin, "u1", "YONETIM_KURULU")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdminBoard, p.Role)

	p, err = svc.SetActive(ctx, admin, "u1", false)
	require.NoError(t, err)
	assert.False(t, p.Active)

	inactive := false
	list, err := svc.List(ctx, board, ListRequest{Active: &inactive})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "u1", list[0].ID)

	_, err = svc.SetActive(ctx, admin, "adm", false)
	assert.ErrorIs(t, err, ErrSelfAction)
	_, err = svc.SetRole(ctx, board, "u1", "admin")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.SetRole(ctx, admin, "ghost", "admin")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestBatchDelete(t *testing.T) {
	db, _, svc := setup(t)
	ctx := context.Background()
	for _, id := range []string{"c1", "c2", "c3"} {
		require.NoError(t, db.Accounts.Create(ctx, &model.Account{ID: id, Email: id + "@example.com"}))
		require.NoError(t, db.Users.Create(ctx, &model.Profile{ID: id, Email: id + "@example.com", Role: model.RoleCustomer, Active: true}))
	}
	require.NoError(t, db.Tickets.Create(ctx, &model.Ticket{ID: "t1", CreatorID: "c1", Status: model.StatusNew}))
	require.NoError(t, db.Tickets.Create(ctx, &model.Ticket{ID: "t2", CreatorID: "c2", Status: model.StatusClosed}))
	require.NoError(t, db.Tickets.Create(ctx, &model.Ticket{ID: "t3", CreatorID: "c3", Status: model.StatusNew}))

	n, err := svc.BatchDelete(ctx, admin, []string{"c1", "c2"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = db.Users.Get(ctx, "c1")
	assert.True(t, repo.IsNotFound(err))
	_, err = db.Accounts.Get(ctx, "c2")
	assert.True(t, repo.IsNotFound(err))
	_, err = db.Tickets.Get(ctx, "t3")
	assert.NoError(t, err)

	entries, err := db.Audit.List(ctx, repo.AuditQuery{Action: model.AuditUserDeleted})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = svc.BatchDelete(ctx, admin, []string{"adm"})
	assert.ErrorIs(t, err, ErrSelfAction)
	_, err = svc.BatchDelete(ctx, admin, nil)
	assert.ErrorIs(t, err, ErrNoUsers)
}
