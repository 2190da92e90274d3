package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/healthhub/healthhub-service/internal/auth"
	"github.com/healthhub/healthhub-service/internal/config"
	"github.com/healthhub/healthhub-service/internal/domain"
	"github.com/healthhub/healthhub-service/internal/events"
	"github.com/healthhub/healthhub-service/internal/repository"
	"github.com/healthhub/healthhub-service/internal/repository/memory"
)

const (
	testClientURL = "http://client.test"
	chromeLinuxUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

type sentMail struct {
	Address  string
	Subject  string
	Template string
	Data     map[string]any
}

type captureSender struct {
	mu   sync.Mutex
	fail error
	sent []sentMail
}

func (c *captureSender) Send(_ context.Context, address, subject, templateID string, data map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.sent = append(c.sent, sentMail{Address: address, Subject: subject, Template: templateID, Data: data})
	return nil
}

func (c *captureSender) last() sentMail {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return sentMail{}
	}
	return c.sent[len(c.sent)-1]
}

func (c *captureSender) count(templateID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.sent {
		if m.Template == templateID {
			n++
		}
	}
	return n
}

// flakyPatients fails updates on demand.
type flakyPatients struct {
	*memory.PatientStore
	failUpdate bool
}

func (f *flakyPatients) Update(ctx context.Context, p *domain.Patient) error {
	if f.failUpdate {
		return errors.New("disk full")
	}
	return f.PatientStore.Update(ctx, p)
}

// faultyLedger refuses to store records of one purpose.
type faultyLedger struct {
	*memory.Ledger
	failPurpose domain.TokenPurpose
}

func (l *faultyLedger) Create(ctx context.Context, rec *domain.TokenRecord) error {
	if rec.Purpose == l.failPurpose {
		return errors.New("ledger unavailable")
	}
	return l.Ledger.Create(ctx, rec)
}

type authFixture struct {
	svc        *AuthService
	accounts   *AccountService
	careTeam   *CareTeamService
	programSvc *ProgramService
	ledger     *memory.Ledger
	clinicians *memory.ClinicianStore
	patients   *flakyPatients
	programs   *memory.ProgramStore
	sender     *captureSender
}

func testConfig() config.Config {
	return config.Config{
		App: config.AppConfig{ClientURL: testClientURL},
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret",
			AccessTokenTTL:  30 * time.Minute,
			RefreshTokenTTL: 15 * 24 * time.Hour,
			VerifyTokenTTL:  2 * time.Hour,
			ResetTokenTTL:   2 * time.Hour,
			BcryptCost:      4,
		},
	}
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	f := &authFixture{
		ledger:     memory.NewLedger(),
		clinicians: memory.NewClinicianStore(),
		patients:   &flakyPatients{PatientStore: memory.NewPatientStore()},
		programs:   memory.NewProgramStore(),
		sender:     &captureSender{},
	}
	subjects := repository.NewSubjectDirectory(f.clinicians, f.patients)
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(dispatcher, f.sender, nil, testClientURL).RegisterHandlers()

	cfg := testConfig()
	f.svc = NewAuthService(cfg, AuthDependencies{
		Subjects:   subjects,
		Ledger:     f.ledger,
		Dispatcher: dispatcher,
	})
	f.accounts = NewAccountService(cfg, subjects, nil)
	f.careTeam = NewCareTeamService(subjects, f.programs, nil)
	f.programSvc = NewProgramService(ProgramDependencies{
		Programs:   f.programs,
		Subjects:   subjects,
		Dispatcher: dispatcher,
	})
	return f
}

// shiftClock moves every ledger-facing clock of the service by d.
func (f *authFixture) shiftClock(d time.Duration) {
	now := func() time.Time { return time.Now().Add(d) }
	f.svc.sessions.now = now
	f.svc.verification.now = now
	f.svc.resets.now = now
}

func (f *authFixture) seedClinician(t *testing.T, email, password string, active bool) *domain.Clinician {
	t.Helper()
	hash, err := auth.HashPassword(password, 4)
	require.NoError(t, err)
	c := &domain.Clinician{
		Identity:    domain.Identity{Email: email, FirstName: "Meredith", LastName: "Grey", PasswordHash: hash, IsActive: active},
		PhoneNumber: "555-0100",
	}
	require.NoError(t, f.clinicians.Create(context.Background(), c))
	return c
}

func (f *authFixture) seedPatient(t *testing.T, email, password string, active bool) *domain.Patient {
	t.Helper()
	hash, err := auth.HashPassword(password, 4)
	require.NoError(t, err)
	p := &domain.Patient{
		Identity: domain.Identity{Email: email, FirstName: "Pat", LastName: "Doe", PasswordHash: hash, IsActive: active},
		Gender:   "female",
	}
	require.NoError(t, f.patients.Create(context.Background(), p))
	return p
}

func (f *authFixture) issueReset(t *testing.T, subject domain.Subject) string {
	t.Helper()
	rec, err := f.svc.resets.Issue(context.Background(), subject, domain.DeviceInfo{})
	require.NoError(t, err)
	return rec.Value
}
