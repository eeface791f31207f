// Package ui provides the Fyne-based GUI for the relaychat client.
package ui

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/dkwon/relaychat/pkg/client"
	"github.com/dkwon/relaychat/pkg/history"
)

// maxChatLines bounds the conversation view; the oldest lines are
// dropped past this point.
const maxChatLines = 500

// App is the main GUI application. It implements the client's Display
// and Prompter collaborator contracts.
type App struct {
	fyneApp fyne.App
	window  fyne.Window
	engine  *client.Engine

	chatBox    *fyne.Container
	chatScroll *container.Scroll
	chatEntry  *widget.Entry

	connectBtn    *widget.Button
	disconnectBtn *widget.Button
	roomBtn       *widget.Button
	fileBtn       *widget.Button
	statusLabel   *widget.Label

	bookmarks *client.BookmarkStore
	log       *history.Store
}

// NewApp creates the relaychat GUI application.
func NewApp() *App {
	a := &App{
		fyneApp:   app.NewWithID("io.relaychat.client"),
		bookmarks: client.NewBookmarkStore(),
	}
	_ = a.bookmarks.Load() // best-effort load

	a.log = openTransferLog()
	a.engine = client.NewEngine(client.Options{
		Display: a,
		History: a.log,
	})
	a.engine.OnDisconnect = func(string) {
		fyne.Do(a.setDisconnectedState)
	}

	a.window = a.fyneApp.NewWindow("RelayChat")
	a.window.Resize(fyne.NewSize(600, 400))
	a.window.SetMaster()
	return a
}

// openTransferLog opens the transfer history database next to the
// binary. The client works fine without it.
func openTransferLog() *history.Store {
	exePath, err := os.Executable()
	if err != nil {
		exePath = "."
	}
	st, err := history.Open(filepath.Join(filepath.Dir(exePath), "transfers.db"))
	if err != nil {
		slog.Warn("transfer log unavailable", "err", err)
		return nil
	}
	return st
}

// Run starts the GUI application (blocks).
func (a *App) Run() {
	a.buildUI()
	a.window.SetCloseIntercept(func() {
		a.engine.Disconnect()
		if a.log != nil {
			_ = a.log.Close()
		}
		a.fyneApp.Quit()
	})
	a.window.ShowAndRun()
}

// DisplayLine appends one line to the conversation view. Safe to call
// from any goroutine; fyne.Do preserves submission order.
func (a *App) DisplayLine(text string) {
	fyne.Do(func() {
		a.chatBox.Add(widget.NewLabel(text))
		if len(a.chatBox.Objects) > maxChatLines {
			a.chatBox.Remove(a.chatBox.Objects[0])
		}
		a.chatScroll.ScrollToBottom()
	})
}

// PromptText shows a modal text prompt and blocks until the user
// confirms or cancels. Must not be called from the UI goroutine.
func (a *App) PromptText(title string) (string, bool) {
	type result struct {
		s  string
		ok bool
	}
	ch := make(chan result, 1)
	fyne.Do(func() {
		entry := widget.NewEntry()
		d := dialog.NewForm(title, "OK", "Cancel",
			[]*widget.FormItem{widget.NewFormItem(title, entry)},
			func(ok bool) { ch <- result{entry.Text, ok} },
			a.window)
		d.Show()
	})
	r := <-ch
	return r.s, r.ok
}

func (a *App) buildUI() {
	a.connectBtn = widget.NewButtonWithIcon("Connect", theme.LoginIcon(), a.showConnectDialog)
	a.disconnectBtn = widget.NewButtonWithIcon("Disconnect", theme.LogoutIcon(), func() {
		a.engine.Disconnect()
	})
	a.disconnectBtn.Disable()

	a.roomBtn = widget.NewButton("Room", a.showRoomDialog)
	a.roomBtn.Disable()
	a.fileBtn = widget.NewButtonWithIcon("File", theme.FileIcon(), a.showSendFileDialog)
	a.fileBtn.Disable()
	historyBtn := widget.NewButtonWithIcon("History", theme.HistoryIcon(), a.showHistoryDialog)

	toolbar := container.NewHBox(
		a.connectBtn,
		a.disconnectBtn,
		layout.NewSpacer(),
		a.roomBtn,
		a.fileBtn,
		historyBtn,
	)

	a.chatBox = container.NewVBox()
	a.chatScroll = container.NewVScroll(a.chatBox)

	a.chatEntry = widget.NewEntry()
	a.chatEntry.SetPlaceHolder("Type a message...")
	a.chatEntry.OnSubmitted = func(text string) {
		if text == "" {
			return
		}
		if err := a.engine.SendChat(text); err != nil {
			dialog.ShowError(err, a.window)
			return
		}
		a.chatEntry.SetText("")
	}

	a.statusLabel = widget.NewLabel("Disconnected")

	content := container.NewBorder(
		toolbar,
		container.NewVBox(a.chatEntry, a.statusLabel),
		nil, nil,
		a.chatScroll,
	)
	a.window.SetContent(content)
}

func (a *App) showConnectDialog() {
	addrEntry := widget.NewEntry()
	addrEntry.SetPlaceHolder("host:port")
	nickEntry := widget.NewEntry()
	// Typing a bookmarked address recalls its nickname.
	addrEntry.OnChanged = func(addr string) {
		if b := a.bookmarks.FindByAddr(addr); b != nil {
			nickEntry.SetText(b.Nickname)
		}
	}
	if len(a.bookmarks.Bookmarks) > 0 {
		last := a.bookmarks.Bookmarks[len(a.bookmarks.Bookmarks)-1]
		addrEntry.SetText(last.Addr)
		nickEntry.SetText(last.Nickname)
	}

	items := []*widget.FormItem{
		widget.NewFormItem("Server", addrEntry),
		widget.NewFormItem("Nickname", nickEntry),
	}
	dialog.ShowForm("Connect", "Connect", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		addr, nick := addrEntry.Text, nickEntry.Text
		go func() {
			if err := a.engine.Connect(addr, nick); err != nil {
				fyne.Do(func() { dialog.ShowError(err, a.window) })
				return
			}
			a.bookmarks.Add(client.Bookmark{Name: addr, Addr: addr, Nickname: nick})
			a.bookmarks.Touch(addr, nick, time.Now().Unix())
			_ = a.bookmarks.Save()
			fyne.Do(func() {
				a.setConnectedState(nick)
				a.showRoomDialog()
			})
		}()
	}, a.window)
}

func (a *App) showRoomDialog() {
	roomEntry := widget.NewEntry()
	roomEntry.SetPlaceHolder("Room name")

	var d dialog.Dialog
	join := func(create bool) {
		room := roomEntry.Text
		if room == "" {
			return
		}
		if err := a.engine.JoinRoom(create, room); err != nil {
			dialog.ShowError(err, a.window)
			return
		}
		d.Hide()
	}

	createBtn := widget.NewButton("Create", func() { join(true) })
	joinBtn := widget.NewButton("Join", func() { join(false) })
	content := container.NewVBox(
		widget.NewLabel("Enter Room Name:"),
		roomEntry,
		container.NewHBox(layout.NewSpacer(), createBtn, joinBtn),
	)
	d = dialog.NewCustom("Room Selection", "Cancel", content, a.window)
	d.Show()
}

func (a *App) showSendFileDialog() {
	fileDialog := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil || rc == nil {
			return
		}
		path := rc.URI().Path()
		_ = rc.Close()

		targetEntry := widget.NewEntry()
		items := []*widget.FormItem{widget.NewFormItem("Target nickname", targetEntry)}
		dialog.ShowForm("Send File", "Send", "Cancel", items, func(ok bool) {
			if !ok || targetEntry.Text == "" {
				return
			}
			if err := a.engine.SendFile(targetEntry.Text, path); err != nil {
				slog.Warn("file send not started", "err", err)
			}
		}, a.window)
	}, a.window)
	fileDialog.Show()
}

func (a *App) showHistoryDialog() {
	if a.log == nil {
		dialog.ShowInformation("Transfer History", "Transfer log is unavailable.", a.window)
		return
	}
	recs, err := a.log.List(20)
	if err != nil {
		dialog.ShowError(err, a.window)
		return
	}

	box := container.NewVBox()
	if len(recs) == 0 {
		box.Add(widget.NewLabel("No transfers recorded yet."))
	}
	for _, r := range recs {
		verb := "received from"
		if r.Direction == history.DirectionSend {
			verb = "sent to"
		}
		box.Add(widget.NewLabel(fmt.Sprintf("%s  '%s' %s %s (%d/%d bytes) — %s",
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.Filename, verb, r.Peer, r.Transferred, r.Size, r.Status)))
	}
	scroll := container.NewVScroll(box)
	scroll.SetMinSize(fyne.NewSize(440, 260))
	dialog.ShowCustom("Transfer History", "Close", scroll, a.window)
}

func (a *App) setConnectedState(nick string) {
	a.connectBtn.Disable()
	a.disconnectBtn.Enable()
	a.roomBtn.Enable()
	a.fileBtn.Enable()
	a.statusLabel.SetText(fmt.Sprintf("Connected as %s", nick))
}

func (a *App) setDisconnectedState() {
	a.connectBtn.Enable()
	a.disconnectBtn.Disable()
	a.roomBtn.Disable()
	a.fileBtn.Disable()
	a.statusLabel.SetText("Disconnected")
}
