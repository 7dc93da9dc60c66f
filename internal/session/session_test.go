package session_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/frahmantamala/billable-dashboard/internal"
	"github.com/frahmantamala/billable-dashboard/internal/core/role"
	"github.com/frahmantamala/billable-dashboard/internal/session"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type recorder struct {
	mu     sync.Mutex
	events []session.Event
}

func (r *recorder) record(e session.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []session.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]session.EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

var _ = Describe("Store", func() {
	var (
		ctx     context.Context
		bus     *session.LocalBroadcaster
		signer  *session.Signer
		logger  *slog.Logger
		tabA    *session.Store
		tabB    *session.Store
		eventsA *recorder
		eventsB *recorder
	)

	jane := session.User{UserID: 7, Name: "Jane", Role: role.Agent, Token: "token-7"}

	BeforeEach(func() {
		ctx = context.Background()
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		bus = session.NewLocalBroadcaster(logger)
		signer = session.NewSigner(testSecret, time.Minute)
		tabA = session.NewStore("tab-a", session.NewMemoryStorage(), bus, signer, logger, session.WithSignalTTL(10*time.Millisecond))
		tabB = session.NewStore("tab-b", session.NewMemoryStorage(), bus, signer, logger, session.WithSignalTTL(10*time.Millisecond))
		eventsA, eventsB = &recorder{}, &recorder{}
		tabA.Subscribe(eventsA.record)
		tabB.Subscribe(eventsB.record)
	})

	AfterEach(func() {
		tabA.Close()
		tabB.Close()
	})

	It("starts anonymous", func() {
		Expect(tabA.State(ctx)).To(Equal(session.Anonymous))
		_, err := tabA.CurrentUser(ctx)
		Expect(errors.Is(err, internal.ErrSessionMissing)).To(BeTrue())
	})

	It("stores the user and session id on login", func() {
		id, err := tabA.Login(ctx, jane)
		Expect(err).NotTo(HaveOccurred())
		Expect(id).NotTo(BeEmpty())
		Expect(tabA.SessionID(ctx)).To(Equal(id))
		Expect(tabA.State(ctx)).To(Equal(session.Authenticated))

		u, err := tabA.CurrentUser(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(u.UserID).To(Equal(int64(7)))
		Expect(u.Role).To(Equal(role.Agent))
		Expect(eventsA.kinds()).To(Equal([]session.EventKind{session.EventLogin}))
	})

	It("logs out the other tab when the same user logs in again", func() {
		_, err := tabB.Login(ctx, jane)
		Expect(err).NotTo(HaveOccurred())

		_, err = tabA.Login(ctx, jane)
		Expect(err).NotTo(HaveOccurred())

		Expect(tabA.State(ctx)).To(Equal(session.Authenticated))
		Expect(tabB.State(ctx)).To(Equal(session.Anonymous))
		Expect(tabA.SessionID(ctx)).NotTo(BeEmpty())
		Expect(tabB.SessionID(ctx)).To(BeEmpty())

		_, err = tabB.CurrentUser(ctx)
		Expect(errors.Is(err, internal.ErrSessionReplaced)).To(BeTrue())
		Expect(eventsB.kinds()).To(Equal([]session.EventKind{session.EventLogin, session.EventInvalidated}))
		Expect(eventsB.events[1].Redirect).To(Equal(session.LoginPath))
		Expect(eventsA.kinds()).To(Equal([]session.EventKind{session.EventLogin}))
	})

	It("logs out the other tab when a different user logs in", func() {
		_, err := tabB.Login(ctx, jane)
		Expect(err).NotTo(HaveOccurred())

		_, err = tabA.Login(ctx, session.User{UserID: 8, Name: "Ivan", Role: role.Admin})
		Expect(err).NotTo(HaveOccurred())

		Expect(tabB.State(ctx)).To(Equal(session.Anonymous))
		Expect(tabA.State(ctx)).To(Equal(session.Authenticated))
	})

	It("logs out every other tab on logout", func() {
		_, err := tabB.Login(ctx, jane)
		Expect(err).NotTo(HaveOccurred())
		tabC := session.NewStore("tab-c", session.NewMemoryStorage(), bus, signer, logger)
		defer tabC.Close()

		_, err = tabC.Login(ctx, jane)
		Expect(err).NotTo(HaveOccurred())
		Expect(tabB.State(ctx)).To(Equal(session.Anonymous))

		Expect(tabA.Logout(ctx)).To(Succeed())
		Expect(tabC.State(ctx)).To(Equal(session.Anonymous))
		_, err = tabC.CurrentUser(ctx)
		Expect(errors.Is(err, internal.ErrSessionMissing)).To(BeTrue())
	})

	It("clears the broadcast key shortly after the signal", func() {
		_, err := tabA.Login(ctx, jane)
		Expect(err).NotTo(HaveOccurred())
		_, ok := bus.Read(session.SignalLogin)
		Expect(ok).To(BeTrue())
		Eventually(func() bool {
			_, ok := bus.Read(session.SignalLogin)
			return ok
		}).WithTimeout(time.Second).Should(BeFalse())
	})

	It("ignores signals it cannot verify", func() {
		_, err := tabB.Login(ctx, jane)
		Expect(err).NotTo(HaveOccurred())

		Expect(bus.Write(ctx, "intruder", session.SignalLogin, "not-a-token")).To(Succeed())
		forged := session.NewSigner("another-secret-another-secret-xx", time.Minute)
		token, err := forged.Sign(session.Signal{SessionID: "x", UserID: 7, Timestamp: time.Now()})
		Expect(err).NotTo(HaveOccurred())
		Expect(bus.Write(ctx, "intruder", session.SignalLogin, token)).To(Succeed())

		Expect(tabB.State(ctx)).To(Equal(session.Authenticated))
	})

	It("derives permissions from the stored user", func() {
		_, err := tabA.Login(ctx, session.User{UserID: 1, Role: role.SuperAdmin})
		Expect(err).NotTo(HaveOccurred())
		Expect(tabA.Permissions(ctx).CanManageUsers).To(BeTrue())
		Expect(tabB.Permissions(ctx)).To(Equal(role.Permissions{}))
	})

	It("rejects a login without a user id", func() {
		_, err := tabA.Login(ctx, session.User{})
		Expect(err).To(HaveOccurred())
		Expect(tabA.State(ctx)).To(Equal(session.Anonymous))
	})
})

var _ = Describe("Registry", func() {
	It("shares one broadcaster per browser", func() {
		reg := session.NewRegistry(session.NewSigner(testSecret, 0), nil, nil)
		ctx := context.Background()

		a := reg.Tab("browser-1", "a")
		b := reg.Tab("browser-1", "b")
		other := reg.Tab("browser-2", "a")
		Expect(reg.Tab("browser-1", "a")).To(BeIdenticalTo(a))
		Expect(reg.Tabs("browser-1")).To(Equal(2))

		_, err := a.Login(ctx, session.User{UserID: 1, Role: role.Admin})
		Expect(err).NotTo(HaveOccurred())
		_, err = other.Login(ctx, session.User{UserID: 1, Role: role.Admin})
		Expect(err).NotTo(HaveOccurred())
		_, err = b.Login(ctx, session.User{UserID: 1, Role: role.Admin})
		Expect(err).NotTo(HaveOccurred())

		Expect(a.State(ctx)).To(Equal(session.Anonymous))
		Expect(other.State(ctx)).To(Equal(session.Authenticated))

		reg.CloseTab("browser-1", "a")
		reg.CloseTab("browser-1", "b")
		Expect(reg.Tabs("browser-1")).To(BeZero())
	})

	It("evicts idle tabs and tells watchers", func() {
		reg := session.NewRegistry(session.NewSigner(testSecret, 0), nil, nil)

		var mu sync.Mutex
		var closed []string
		reg.Watch(func(browserID, tabID string, ev session.Event) {
			if ev.Kind != session.EventClosed {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			closed = append(closed, browserID+"/"+tabID)
		})

		reg.Tab("browser-1", "a")
		reg.Tab("browser-2", "a")
		time.Sleep(5 * time.Millisecond)
		cutoff := time.Now()
		time.Sleep(5 * time.Millisecond)
		reg.Tab("browser-1", "b")
		Expect(reg.Open()).To(Equal(3))

		Expect(reg.Evict(cutoff)).To(Equal(2))
		Expect(reg.Open()).To(Equal(1))
		Expect(reg.Tabs("browser-1")).To(Equal(1))
		Expect(reg.Tabs("browser-2")).To(BeZero())

		mu.Lock()
		Expect(closed).To(ConsistOf("browser-1/a", "browser-2/a"))
		mu.Unlock()

		Expect(reg.Evict(time.Now().Add(time.Minute))).To(Equal(1))
		Expect(reg.Open()).To(BeZero())
	})

	It("sweeps idle tabs until stopped", func() {
		reg := session.NewRegistry(session.NewSigner(testSecret, 0), nil, nil)
		reg.Tab("browser-1", "a")

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		swept := make(chan time.Time, 16)
		go func() {
			defer close(done)
			reg.Sweep(ctx, 5*time.Millisecond, time.Nanosecond, func(_ context.Context, before time.Time) {
				select {
				case swept <- before:
				default:
				}
			})
		}()

		Eventually(reg.Open).Should(BeZero())
		Eventually(swept).Should(Receive())
		cancel()
		Eventually(done).Should(BeClosed())
	})

	It("reports tab events to watchers", func() {
		reg := session.NewRegistry(session.NewSigner(testSecret, 0), nil, nil)
		ctx := context.Background()

		var mu sync.Mutex
		var seen []string
		reg.Watch(func(browserID, tabID string, ev session.Event) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, browserID+"/"+tabID+":"+string(ev.Kind))
		})

		a := reg.Tab("browser-1", "a")
		b := reg.Tab("browser-1", "b")
		_, err := a.Login(ctx, session.User{UserID: 1, Role: role.Admin})
		Expect(err).NotTo(HaveOccurred())
		_, err = b.Login(ctx, session.User{UserID: 1, Role: role.Admin})
		Expect(err).NotTo(HaveOccurred())

		mu.Lock()
		defer mu.Unlock()
		Expect(seen).To(ContainElements(
			"browser-1/a:login",
			"browser-1/b:login",
			"browser-1/a:invalidated",
		))
	})
})
