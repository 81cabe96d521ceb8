// Package dashboard implements the dashboard client: login, history,
// upload, dataset view, rendering and report download. Presentation goes
// through a typed ViewModel, user-facing errors through a Notifier.
package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/chemvis/dashboard/internal/backend"
	"github.com/chemvis/dashboard/internal/models"
	"github.com/chemvis/dashboard/internal/render"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNoActiveDataset  = errors.New("no dataset on display")
	ErrNoChart          = errors.New("no chart on display")
)

// DefaultLabelResetDelay is how long the drop zone shows its success label.
const DefaultLabelResetDelay = 2 * time.Second

// Backend is the equipment API as the dashboard uses it.
type Backend interface {
	History(ctx context.Context, token string) ([]models.Dataset, error)
	Upload(ctx context.Context, token string, file *models.UploadFile) (*models.Dataset, error)
	Report(ctx context.Context, token string, datasetID int64) (*models.Report, error)
}

// Preparer turns a user file into something the backend accepts.
type Preparer interface {
	Prepare(name string, r io.Reader) (*models.UploadFile, error)
}

// LoginOutcome is the result of a login attempt.
type LoginOutcome string

const (
	LoginIgnored  LoginOutcome = "ignored"
	LoginOK       LoginOutcome = "ok"
	LoginRejected LoginOutcome = "rejected"
	LoginFailed   LoginOutcome = "failed"
)

// Options configure a Controller. Backend is required.
type Options struct {
	Backend         Backend
	Preparer        Preparer
	Notifier        Notifier
	Observer        Observer
	Logger          *slog.Logger
	History         render.HistoryFormatter
	ChartImage      render.ChartImage
	LabelResetDelay time.Duration
}

// Controller holds one user's dashboard: the session, the view model, the
// dataset on display and its chart. Methods are safe for concurrent use;
// network calls run without holding the lock, so overlapping operations
// apply their results in the order responses arrive.
type Controller struct {
	backend    Backend
	preparer   Preparer
	notifier   Notifier
	observer   Observer
	logger     *slog.Logger
	history    render.HistoryFormatter
	chartImage render.ChartImage
	labelDelay time.Duration

	mu         sync.Mutex
	session    *Session
	view       ViewModel
	dataset    *models.Dataset
	canvas     Canvas
	labelGen   uint64
	labelTimer *time.Timer
	seq        uint64
}

// New creates a controller on the login screen.
func New(opts Options) *Controller {
	c := &Controller{
		backend:    opts.Backend,
		preparer:   opts.Preparer,
		notifier:   opts.Notifier,
		observer:   opts.Observer,
		logger:     opts.Logger,
		history:    opts.History,
		chartImage: opts.ChartImage,
		labelDelay: opts.LabelResetDelay,
		view:       initialView(),
	}
	if c.notifier == nil {
		c.notifier = nopNotifier{}
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.labelDelay <= 0 {
		c.labelDelay = DefaultLabelResetDelay
	}
	if c.chartImage.Width == 0 || c.chartImage.Height == 0 {
		c.chartImage = render.ChartImage{Width: 480, Height: 480}
	}
	return c
}

// Snapshot returns a copy of the view model.
func (c *Controller) Snapshot() ViewModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Session returns the current session, or nil before login.
func (c *Controller) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Login verifies the credentials against a protected endpoint. On success
// it opens a session, switches to the main screen and loads the history.
// Empty fields are ignored without any network call.
func (c *Controller) Login(ctx context.Context, creds models.Credentials) LoginOutcome {
	if creds.Empty() {
		return LoginIgnored
	}

	token := backend.BasicToken(creds.Username, creds.Password)
	if _, err := c.backend.History(ctx, token); err != nil {
		outcome, msg := LoginRejected, MsgInvalidCredentials
		if backend.IsTransport(err) {
			outcome, msg = LoginFailed, MsgConnectionFailed
		}
		c.logger.Warn("login failed", "username", creds.Username, "error", err)
		c.update(func(v *ViewModel) {
			v.LoginError = msg
		})
		c.notifier.Notify(ctx, Notice{Source: "login", Level: LevelWarning, Message: msg, Err: err})
		return outcome
	}

	c.mu.Lock()
	c.resetLocked()
	c.session = newSession(creds.Username, token)
	c.view.Screen = ScreenMain
	c.view.Username = creds.Username
	snap := c.publishedLocked()
	c.mu.Unlock()
	c.observer.ViewChanged(snap)

	c.logger.Info("login succeeded", "username", creds.Username)
	c.LoadHistory(ctx)
	return LoginOK
}

// Logout drops the session and returns to the login screen.
func (c *Controller) Logout() {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return
	}
	c.resetLocked()
	snap := c.publishedLocked()
	c.mu.Unlock()
	c.observer.ViewChanged(snap)
}

// Close stops timers and releases the chart. The controller is unusable
// afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// LoadHistory replaces the history list with the backend's current one.
// On failure the previous list stays on display.
func (c *Controller) LoadHistory(ctx context.Context) error {
	sess, token, err := c.authenticated()
	if err != nil {
		return err
	}

	datasets, err := c.backend.History(ctx, token)
	if err != nil {
		c.fail(ctx, sess, "history", err, "Could not load upload history")
		return err
	}

	rows := c.history.Rows(datasets)
	c.updateFor(sess, func(v *ViewModel) {
		v.History = rows
	})
	return nil
}

// Upload prepares and posts a file. On success the returned dataset is
// rendered and the history refreshed once. A missing file is a no-op.
func (c *Controller) Upload(ctx context.Context, name string, r io.Reader) error {
	if name == "" || r == nil {
		return nil
	}
	sess, token, err := c.authenticated()
	if err != nil {
		return err
	}

	c.setLabel(sess, LabelUploading)

	file := &models.UploadFile{Name: name}
	if c.preparer != nil {
		file, err = c.preparer.Prepare(name, r)
	} else {
		file.Data, err = io.ReadAll(r)
	}
	if err != nil {
		c.setLabel(sess, LabelError)
		c.notifier.Notify(ctx, Notice{Source: "upload", Level: LevelWarning, Message: err.Error(), Err: err})
		return err
	}

	ds, err := c.backend.Upload(ctx, token, file)
	if err != nil {
		if backend.IsTransport(err) {
			c.logger.Error("upload failed", "file", file.Name, "error", err)
			c.setLabel(sess, LabelConnectionError)
			c.notifier.Notify(ctx, Notice{Source: "upload", Level: LevelError, Message: LabelConnectionError, Err: err})
			return err
		}
		c.setLabel(sess, LabelError)
		c.fail(ctx, sess, "upload", err, backend.Message(err, "Upload failed"))
		return err
	}

	c.logger.Info("upload succeeded", "file", file.Name, "dataset_id", ds.ID)
	c.showSuccess(sess)
	c.render(sess, ds)
	c.LoadHistory(ctx)
	return nil
}

// View re-fetches the history and renders the entry with the given id.
// An id outside the returned window is silently ignored.
func (c *Controller) View(ctx context.Context, id int64) error {
	sess, token, err := c.authenticated()
	if err != nil {
		return err
	}

	datasets, err := c.backend.History(ctx, token)
	if err != nil {
		c.fail(ctx, sess, "view", err, "Could not load dataset")
		return err
	}

	for i := range datasets {
		if datasets[i].ID == id {
			c.render(sess, &datasets[i])
			return nil
		}
	}
	c.logger.Debug("dataset not in history window", "dataset_id", id)
	return nil
}

// Render puts a dataset on display, replacing whatever was shown before.
func (c *Controller) Render(ds *models.Dataset) error {
	sess, _, err := c.authenticated()
	if err != nil {
		return err
	}
	c.render(sess, ds)
	return nil
}

// DownloadReport fetches the PDF report of the dataset on display. With no
// dataset on display it returns ErrNoActiveDataset without calling out.
func (c *Controller) DownloadReport(ctx context.Context) (*models.Report, error) {
	c.mu.Lock()
	sess := c.session
	if sess == nil || !sess.hasActive {
		c.mu.Unlock()
		return nil, ErrNoActiveDataset
	}
	token, id := sess.token, sess.activeID
	c.mu.Unlock()

	report, err := c.backend.Report(ctx, token, id)
	if err != nil {
		c.fail(ctx, sess, "report", err, "Report download failed")
		return nil, err
	}
	return report, nil
}

// ExportWorkbook writes the dataset on display as an xlsx workbook.
func (c *Controller) ExportWorkbook(w io.Writer) (int64, error) {
	c.mu.Lock()
	ds := c.dataset
	c.mu.Unlock()
	if ds == nil {
		return 0, ErrNoActiveDataset
	}
	if err := render.ExportWorkbook(ds, w); err != nil {
		return 0, err
	}
	return ds.ID, nil
}

// ChartImage renders the chart on display.
func (c *Controller) ChartImage(format render.ImageFormat) ([]byte, error) {
	c.mu.Lock()
	chart := c.canvas.Current()
	c.mu.Unlock()
	if chart == nil {
		return nil, ErrNoChart
	}
	return chart.Image(c.chartImage, format)
}

// ActiveDataset returns the id of the dataset on display.
func (c *Controller) ActiveDataset() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return 0, false
	}
	return c.session.ActiveDataset()
}

// LiveCharts returns how many chart instances are attached to the canvas.
func (c *Controller) LiveCharts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canvas.Live()
}

func (c *Controller) render(sess *Session, ds *models.Dataset) {
	view := render.BuildDashboard(ds)

	c.mu.Lock()
	if c.session != sess {
		c.mu.Unlock()
		return
	}
	chart := c.canvas.Attach(view.Chart)
	sess.setActive(ds.ID)
	c.dataset = ds
	c.view.Dashboard = view
	c.view.ChartID = chart.ID
	snap := c.publishedLocked()
	c.mu.Unlock()

	c.observer.ViewChanged(snap)
}

// fail reports a failed operation. A 401/403 means the session is no
// longer valid: it is dropped and the user sent back to the login screen.
func (c *Controller) fail(ctx context.Context, sess *Session, source string, err error, msg string) {
	level := LevelWarning
	if backend.IsTransport(err) {
		level = LevelError
		c.logger.Error(source+" failed", "error", err)
	} else {
		c.logger.Warn(source+" rejected", "error", err)
	}

	if backend.IsUnauthorized(err) {
		msg = MsgSessionExpired
		c.mu.Lock()
		if c.session == sess {
			c.resetLocked()
			c.view.LoginError = MsgSessionExpired
			snap := c.publishedLocked()
			c.mu.Unlock()
			c.observer.ViewChanged(snap)
		} else {
			c.mu.Unlock()
		}
	}

	c.notifier.Notify(ctx, Notice{Source: source, Level: level, Message: msg, Err: err})
}

// showSuccess shows the success label and schedules its reset to idle. A
// later label change cancels the reset.
func (c *Controller) showSuccess(sess *Session) {
	c.mu.Lock()
	if c.session != sess {
		c.mu.Unlock()
		return
	}
	c.labelGen++
	gen := c.labelGen
	c.view.DropLabel = LabelSuccess
	if c.labelTimer != nil {
		c.labelTimer.Stop()
	}
	c.labelTimer = time.AfterFunc(c.labelDelay, func() {
		c.mu.Lock()
		if c.labelGen != gen {
			c.mu.Unlock()
			return
		}
		c.view.DropLabel = LabelIdle
		snap := c.publishedLocked()
		c.mu.Unlock()
		c.observer.ViewChanged(snap)
	})
	snap := c.publishedLocked()
	c.mu.Unlock()

	c.observer.ViewChanged(snap)
}

func (c *Controller) setLabel(sess *Session, label string) {
	c.updateFor(sess, func(v *ViewModel) {
		c.labelGen++
		v.DropLabel = label
	})
}

// authenticated returns the session and its token.
func (c *Controller) authenticated() (*Session, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, "", ErrNotAuthenticated
	}
	return c.session, c.session.token, nil
}

// update applies fn to the view and publishes the result.
func (c *Controller) update(fn func(v *ViewModel)) {
	c.mu.Lock()
	fn(&c.view)
	snap := c.publishedLocked()
	c.mu.Unlock()
	c.observer.ViewChanged(snap)
}

// updateFor is update, skipped when sess is no longer the current session.
func (c *Controller) updateFor(sess *Session, fn func(v *ViewModel)) {
	c.mu.Lock()
	if c.session != sess {
		c.mu.Unlock()
		return
	}
	fn(&c.view)
	snap := c.publishedLocked()
	c.mu.Unlock()
	c.observer.ViewChanged(snap)
}

// publishedLocked stamps the view with the next sequence number and
// returns it for the observer. Observers are called outside c.mu, so
// snapshots can arrive out of order; Seq lets them keep the newest.
func (c *Controller) publishedLocked() ViewModel {
	c.seq++
	c.view.Seq = c.seq
	return c.view
}

// resetLocked drops session, dataset and chart. Caller holds c.mu.
func (c *Controller) resetLocked() {
	if c.labelTimer != nil {
		c.labelTimer.Stop()
		c.labelTimer = nil
	}
	c.labelGen++
	c.canvas.Clear()
	c.session = nil
	c.dataset = nil
	c.view = initialView()
	c.view.Seq = c.seq
}
