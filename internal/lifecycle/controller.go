package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alkime/docucast/internal/conversion"
	"github.com/alkime/docucast/internal/estimator"
	"github.com/alkime/docucast/internal/playback"
	"github.com/alkime/docucast/internal/prefs"
	"github.com/alkime/docucast/internal/tui/components/labeledspinner"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
)

// DefaultSubmitTimeout bounds one submission including server-side work.
const DefaultSubmitTimeout = 15 * time.Minute

// Converter is the conversion service.
type Converter interface {
	Submit(ctx context.Context, req conversion.Request) (*conversion.Response, error)
	Download(ctx context.Context, result conversion.AudioResult, doc conversion.Document, dir string) (string, error)
}

// Options configures a Controller.
type Options struct {
	Converter Converter
	Opener    playback.Opener
	Estimator estimator.Config
	// SubmitTimeout defaults to DefaultSubmitTimeout.
	SubmitTimeout time.Duration
	DownloadDir   string
	Preferences   prefs.Preferences
	// Rate is the initial playback rate for new players.
	Rate float64
}

// SelectFileMsg offers a file for conversion.
type SelectFileMsg struct {
	Path string
}

// SubmitMsg submits the selected file with the current preferences.
type SubmitMsg struct{}

// ResetMsg discards a finished or failed job.
type ResetMsg struct{}

// DownloadMsg saves the completed job's audio into the download directory.
type DownloadMsg struct{}

type responseMsg struct {
	jobID uuid.UUID
	resp  *conversion.Response
	err   error
}

type resultMsg struct {
	jobID  uuid.UUID
	result conversion.AudioResult
	err    error
}

type downloadedMsg struct {
	jobID uuid.UUID
	path  string
	err   error
}

// Controller owns the job, its progress estimator and its player.
type Controller struct {
	opts Options
	keys KeyMap

	prefs prefs.Preferences
	rate  float64

	job    *Job
	notice string
	cancel context.CancelFunc

	est    estimator.Model
	player *playback.Model

	spinner    labeledspinner.Model
	input      textinput.Model
	transcript viewport.Model
	saved      string
	saveErr    error

	width int
}

// New creates an idle controller.
func New(opts Options) (*Controller, error) {
	if opts.Converter == nil {
		return nil, errors.New("converter is required")
	}

	if opts.Opener == nil {
		return nil, errors.New("audio opener is required")
	}

	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = DefaultSubmitTimeout
	}

	if opts.Rate == 0 {
		opts.Rate = 1
	}

	if err := playback.ValidateRate(opts.Rate); err != nil {
		return nil, err
	}

	p := opts.Preferences
	if p == (prefs.Preferences{}) {
		p = prefs.Default()
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid preferences: %w", err)
	}

	est, err := estimator.New(opts.Estimator)
	if err != nil {
		return nil, err
	}

	input := textinput.New()
	input.Placeholder = "path/to/document.pdf"
	input.Prompt = "> "
	input.Width = 60
	input.Focus()

	transcript := viewport.New(80, 12)
	transcript.KeyMap = transcriptKeyMap()

	return &Controller{
		opts:       opts,
		keys:       DefaultKeyMap(),
		prefs:      p,
		rate:       opts.Rate,
		est:        est,
		spinner:    labeledspinner.New(spinner.Dot, "", "", ""),
		input:      input,
		transcript: transcript,
		width:      80,
	}, nil
}

func transcriptKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "page down"),
		),
	}
}

// Job returns the current job, or nil.
func (c *Controller) Job() *Job { return c.job }

// Progress is the displayed percentage.
func (c *Controller) Progress() int { return c.est.Percent() }

// Preferences returns the editable preferences.
func (c *Controller) Preferences() prefs.Preferences { return c.prefs }

// Player returns the live player, or nil.
func (c *Controller) Player() *playback.Model { return c.player }

// Notice is the message shown after a rejected file.
func (c *Controller) Notice() string { return c.notice }

// Editing reports whether keystrokes go to the file path input.
func (c *Controller) Editing() bool { return c.job == nil }

func (c *Controller) Init() tea.Cmd {
	return textinput.Blink
}

//nolint:cyclop,funlen // message router
func (c *Controller) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := teaMsg.(type) {
	case SelectFileMsg:
		c.selectFile(msg.Path)
		return c, nil

	case SubmitMsg:
		return c, c.submit()

	case ResetMsg:
		c.reset()
		return c, textinput.Blink

	case DownloadMsg:
		return c, c.download()

	case responseMsg:
		return c, c.handleResponse(msg)

	case resultMsg:
		return c, c.handleResult(msg)

	case downloadedMsg:
		c.handleDownloaded(msg)
		return c, nil

	case estimator.FinishedMsg:
		return c, c.handleFinished(msg)

	case estimator.TickMsg:
		var cmd tea.Cmd
		c.est, cmd = c.est.Update(msg)

		return c, cmd

	case spinner.TickMsg:
		if c.job == nil || !c.job.InFlight() {
			return c, nil
		}

		var cmd tea.Cmd
		c.spinner, cmd = c.spinner.Update(msg)

		return c, cmd

	case tea.WindowSizeMsg:
		c.resize(msg.Width, msg.Height)
		return c, nil

	case tea.KeyMsg:
		return c, c.handleKey(msg)

	case tea.MouseMsg:
		return c, c.handleMouse(msg)
	}

	return c, c.forward(teaMsg)
}

// forward hands anything else to the estimator and player.
func (c *Controller) forward(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd

	var cmd tea.Cmd
	c.est, cmd = c.est.Update(msg)
	cmds = append(cmds, cmd)

	if c.player != nil {
		_, cmd = c.player.Update(msg)
		cmds = append(cmds, cmd)
	} else {
		playback.Release(msg)
	}

	if c.Editing() {
		c.input, cmd = c.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return tea.Batch(cmds...)
}

func (c *Controller) selectFile(path string) {
	if c.job != nil && c.job.Status() != StatusIdle {
		slog.Debug("Ignoring file selection while a job exists", "status", c.job.Status())
		return
	}

	doc, err := conversion.OpenDocument(strings.TrimSpace(path))
	if err != nil {
		var invalid *conversion.InvalidInputError
		if errors.As(err, &invalid) {
			c.notice = invalid.Error()
		} else {
			c.notice = err.Error()
		}

		c.job = nil
		slog.Info("Rejected file", "path", path, "error", err)

		return
	}

	c.notice = ""
	c.job = newJob(doc)
	c.input.Blur()
	slog.Info("Selected document", "job", c.job.ID, "name", doc.Name, "size", doc.Size)
}

func (c *Controller) submit() tea.Cmd {
	if c.job == nil || c.job.Status() != StatusIdle {
		return nil
	}

	job := c.job
	job.Preferences = c.prefs
	job.state = Uploading{}

	var estCmd tea.Cmd
	c.est, estCmd = c.est.Start()

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.SubmitTimeout)
	c.cancel = cancel

	c.spinner.Title = "Uploading " + job.Document.Name
	c.spinner.Subtitle = "Sending the document to the conversion service"

	slog.Info("Submitting job", "job", job.ID, "preferences", job.Preferences)

	req := conversion.Request{Document: job.Document, Preferences: job.Preferences}
	converter, jobID := c.opts.Converter, job.ID

	submitCmd := func() tea.Msg {
		resp, err := converter.Submit(ctx, req)
		return responseMsg{jobID: jobID, resp: resp, err: err}
	}

	return tea.Batch(estCmd, submitCmd, c.spinner.Init())
}

// current reports whether a callback for jobID still applies in status.
func (c *Controller) current(jobID uuid.UUID, status Status) bool {
	if c.job != nil && c.job.ID == jobID && c.job.Status() == status {
		return true
	}

	slog.Debug("Dropping callback", "job", jobID, "error", ErrStaleCallback)

	return false
}

func (c *Controller) handleResponse(msg responseMsg) tea.Cmd {
	if !c.current(msg.jobID, StatusUploading) {
		if msg.resp != nil {
			msg.resp.Close()
		}

		return nil
	}

	if msg.err != nil {
		c.fail(msg.err)
		return nil
	}

	c.job.state = Processing{}
	c.spinner.Title = "Generating podcast for " + c.job.Document.Name
	c.spinner.Subtitle = "Writing the script and recording both voices"

	resp, jobID := msg.resp, msg.jobID

	return func() tea.Msg {
		result, err := resp.Decode()
		return resultMsg{jobID: jobID, result: result, err: err}
	}
}

func (c *Controller) handleResult(msg resultMsg) tea.Cmd {
	if !c.current(msg.jobID, StatusProcessing) {
		return nil
	}

	if msg.err != nil {
		c.fail(msg.err)
		return nil
	}

	result := msg.result
	c.job.state = Processing{pending: &result}
	c.spinner.Subtitle = "Finishing up"

	var cmd tea.Cmd
	c.est, cmd = c.est.Finish()

	return cmd
}

func (c *Controller) handleFinished(msg estimator.FinishedMsg) tea.Cmd {
	if !c.est.Finished(msg) || c.job == nil {
		slog.Debug("Dropping estimator completion", "error", ErrStaleCallback)
		return nil
	}

	processing, ok := c.job.state.(Processing)
	if !ok {
		return nil
	}

	result, ok := processing.Pending()
	if !ok {
		return nil
	}

	c.job.state = Complete{Result: result}
	c.stopRequest()
	c.disposePlayer()

	c.player = playback.New(c.opts.Opener, result.URL, c.rate)
	c.player.SetWidth(c.width)
	c.transcript.SetContent(renderTranscript(result.Transcript, c.transcript.Width))
	c.transcript.GotoTop()

	slog.Info("Job complete", "job", c.job.ID, "audio", result.URL, "lines", len(result.Transcript))

	return c.player.Init()
}

// fail moves the job to the error state and stops its timers.
func (c *Controller) fail(err error) {
	c.est = c.est.Cancel()
	c.stopRequest()
	c.job.state = Failed{Err: err}

	slog.Error("Job failed", "job", c.job.ID, "progress", c.est.Percent(), "error", err)
}

func (c *Controller) reset() {
	if c.job != nil && c.job.InFlight() {
		slog.Debug("Ignoring reset while a request is in flight", "job", c.job.ID)
		return
	}

	c.stopRequest()
	c.disposePlayer()
	c.est = c.est.Reset()
	c.job = nil
	c.notice = ""
	c.saved = ""
	c.saveErr = nil
	c.input.SetValue("")
	c.input.Focus()
}

// Teardown cancels everything the controller has started. Call it before
// discarding the controller.
func (c *Controller) Teardown() {
	c.stopRequest()
	c.est = c.est.Cancel()
	c.disposePlayer()
}

func (c *Controller) stopRequest() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) disposePlayer() {
	if c.player == nil {
		return
	}

	if rate := c.player.State().Rate; rate > 0 {
		c.rate = rate
	}

	c.player.Dispose()
	c.player = nil
}

func (c *Controller) download() tea.Cmd {
	if c.job == nil {
		return nil
	}

	result, ok := c.job.Result()
	if !ok {
		return nil
	}

	converter, doc, dir, jobID := c.opts.Converter, c.job.Document, c.opts.DownloadDir, c.job.ID
	c.saved = ""
	c.saveErr = nil

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		path, err := converter.Download(ctx, result, doc, dir)

		return downloadedMsg{jobID: jobID, path: path, err: err}
	}
}

func (c *Controller) handleDownloaded(msg downloadedMsg) {
	if !c.current(msg.jobID, StatusComplete) {
		return
	}

	if msg.err != nil {
		c.saveErr = fmt.Errorf("failed to save audio: %w", msg.err)
		slog.Error("Download failed", "job", msg.jobID, "error", msg.err)

		return
	}

	c.saved = msg.path
}

//nolint:cyclop // one switch per screen
func (c *Controller) handleKey(msg tea.KeyMsg) tea.Cmd {
	if c.job == nil {
		if key.Matches(msg, c.keys.Select) {
			c.selectFile(c.input.Value())
			return nil
		}

		var cmd tea.Cmd
		c.input, cmd = c.input.Update(msg)

		return cmd
	}

	switch c.job.Status() {
	case StatusIdle:
		switch {
		case key.Matches(msg, c.keys.Submit):
			return c.submit()
		case key.Matches(msg, c.keys.Change):
			c.job = nil
			c.input.Focus()

			return textinput.Blink
		case key.Matches(msg, c.keys.Tone):
			c.prefs.Tone = c.prefs.Tone.Next()
		case key.Matches(msg, c.keys.Length):
			c.prefs.Length = c.prefs.Length.Next()
		case key.Matches(msg, c.keys.Depth):
			c.prefs.Depth = c.prefs.Depth.Next()
		case key.Matches(msg, c.keys.Humor):
			c.prefs.Humor = !c.prefs.Humor
		}

	case StatusComplete:
		switch {
		case key.Matches(msg, c.keys.Reset):
			c.reset()
			return textinput.Blink
		case key.Matches(msg, c.keys.Download):
			return c.download()
		}

		var cmds []tea.Cmd

		var cmd tea.Cmd
		c.transcript, cmd = c.transcript.Update(msg)
		cmds = append(cmds, cmd)

		if c.player != nil {
			_, cmd = c.player.Update(msg)
			cmds = append(cmds, cmd)
		}

		return tea.Batch(cmds...)

	case StatusError:
		if key.Matches(msg, c.keys.Reset) {
			c.reset()
			return textinput.Blink
		}

	case StatusUploading, StatusProcessing:
	}

	return nil
}

// PlayerRow is the line of the controller's view holding the track bar
// while a result is playing.
const PlayerRow = 2

func (c *Controller) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if c.player == nil {
		return nil
	}

	if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && msg.Y == PlayerRow {
		if err := c.player.SeekAt(msg.X); err != nil && !errors.Is(err, playback.ErrNoSource) {
			slog.Warn("Seek failed", "error", err)
		}

		return nil
	}

	var cmd tea.Cmd
	c.transcript, cmd = c.transcript.Update(msg)

	return cmd
}

func (c *Controller) resize(width, height int) {
	c.width = max(20, width-4)
	c.est.SetWidth(min(60, c.width-6))
	c.input.Width = min(80, c.width)
	c.transcript.Width = c.width
	c.transcript.Height = max(4, height-14)

	if c.player != nil {
		c.player.SetWidth(min(80, c.width))
	}

	if c.job != nil {
		if result, ok := c.job.Result(); ok {
			c.transcript.SetContent(renderTranscript(result.Transcript, c.transcript.Width))
		}
	}
}
