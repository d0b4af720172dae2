package main

import (
	"fmt"
	"image/color"
	"os"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/ligun0805/caps-transfer/internal/config"
	"github.com/ligun0805/caps-transfer/internal/transfercore"
)

const (
	colIndex = iota
	colAddress
	colAmount
	colFee
	colStatus
	colCount
)

func main() {
	hideConsoleWindow()

	_ = godotenv.Load()
	_ = godotenv.Overload(".env.local")
	settings = config.Load()
	if lvl, err := log.ParseLevel(settings.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	a := app.New()
	curTheme := makeTheme("dark", false)
	a.Settings().SetTheme(curTheme)

	w := a.NewWindow("Ternoa CAPS Transfer")
	mainWin = w
	w.SetOnClosed(func() {
		stopRun()
		if viewWin != nil {
			viewWin.Close()
			viewWin = nil
		}
		if logWin != nil {
			logWin.Close()
			logWin = nil
		}
		closeChain()
	})
	w.Resize(fyne.NewSize(1180, 760))

	wsEntry := widget.NewEntry()
	wsEntry.SetText(settings.WSURL)
	decimalsEntry := widget.NewEntry()
	decimalsEntry.SetText(fmt.Sprintf("%d", settings.TokenDecimals))
	decimalsEntry.Disable()
	estimatorSelect := widget.NewSelect([]string{"fixed", "dryrun"}, nil)
	estimatorSelect.SetSelected(defaultStr(settings.Estimator, "fixed"))

	themeSelect := widget.NewSelect([]string{"Dark", "Light"}, func(s string) {
		mode := "dark"
		if s == "Light" {
			mode = "light"
		}
		curTheme = makeTheme(mode, curTheme.(*appTheme).compact)
		a.Settings().SetTheme(curTheme)
	})
	themeSelect.SetSelected("Dark")
	compactCheck := widget.NewCheck("Compact", func(b bool) {
		curTheme = makeTheme(curTheme.(*appTheme).mode, b)
		a.Settings().SetTheme(curTheme)
	})

	statusLbl = widget.NewLabel("[chain] not connected")
	connectNodeBtn := widget.NewButtonWithIcon("CONNECT NODE", theme.MediaPlayIcon(), func() {
		go connectChain(a, strings.TrimSpace(wsEntry.Text))
	})

	networkCard := widget.NewCard("Network", "", widget.NewForm(
		widget.NewFormItem("Node URL", container.NewBorder(nil, nil, nil, connectNodeBtn, wsEntry)),
		widget.NewFormItem("Decimals", decimalsEntry),
		widget.NewFormItem("Fee estimator", estimatorSelect),
		widget.NewFormItem("", container.NewGridWithColumns(2, themeSelect, compactCheck)),
	))

	// ---------- Signer ----------
	signerLbl = widget.NewLabel("No signer connected")
	signerLbl.TextStyle = fyne.TextStyle{Monospace: true}
	phraseEntry := widget.NewPasswordEntry()
	phraseEntry.SetPlaceHolder("mnemonic or 0x seed, optional //path")
	schemeSelect := widget.NewSelect([]string{"sr25519", "ecdsa"}, nil)
	schemeSelect.SetSelected(defaultStr(settings.KeyScheme, "sr25519"))
	accountEntry := widget.NewEntry()
	accountEntry.SetText(settings.Account)
	accountEntry.SetPlaceHolder("account (empty = first)")
	providerEntry := widget.NewEntry()
	providerEntry.SetText(settings.SignerProviderURL)

	modeRadio := widget.NewRadioGroup([]string{modeExtension, modeMnemonic}, func(s string) {
		if s == modeMnemonic {
			phraseEntry.Enable()
			schemeSelect.Enable()
			accountEntry.Disable()
			providerEntry.Disable()
			return
		}
		phraseEntry.Disable()
		schemeSelect.Disable()
		accountEntry.Enable()
		providerEntry.Enable()
	})
	modeRadio.Horizontal = true
	modeRadio.SetSelected(modeExtension)

	connectBtn := widget.NewButtonWithIcon("CONNECT", theme.LoginIcon(), func() {
		req := signerRequest{
			mode:     modeRadio.Selected,
			phrase:   phraseEntry.Text,
			scheme:   schemeSelect.Selected,
			account:  strings.TrimSpace(accountEntry.Text),
			provider: strings.TrimSpace(providerEntry.Text),
		}
		phraseEntry.SetText("")
		go connectSigner(a, req)
	})
	disconnectBtn := widget.NewButtonWithIcon("DISCONNECT", theme.LogoutIcon(), func() {
		go disconnectSigner(a)
	})

	signerCard := widget.NewCard("Signer", "", container.NewVBox(
		modeRadio,
		widget.NewForm(
			widget.NewFormItem("Secret phrase", phraseEntry),
			widget.NewFormItem("Key type", schemeSelect),
			widget.NewFormItem("Account", accountEntry),
			widget.NewFormItem("Provider", providerEntry),
		),
		container.NewGridWithColumns(2, connectBtn, disconnectBtn),
		signerLbl,
	))

	// ---------- Recipients ----------
	recipientsTable = widget.NewTable(
		func() (int, int) { return rowCount() + 1, colCount },
		func() fyne.CanvasObject {
			lbl := widget.NewLabel("")
			lbl.Truncation = fyne.TextTruncateEllipsis
			btn := widget.NewButton("Details", nil)
			return container.NewHBox(lbl, btn)
		},
		func(id widget.TableCellID, obj fyne.CanvasObject) {
			box := obj.(*fyne.Container)
			lbl := box.Objects[0].(*widget.Label)
			btn := box.Objects[1].(*widget.Button)
			btn.Hide()
			lbl.TextStyle = fyne.TextStyle{}
			if id.Row == 0 {
				lbl.TextStyle = fyne.TextStyle{Bold: true}
				lbl.SetText([]string{"#", "Address", "Amount (" + settings.TokenSymbol + ")", "Est. fee", "Status"}[id.Col])
				return
			}
			row := id.Row - 1
			rs, ok := rowAt(row)
			if !ok {
				lbl.SetText("")
				return
			}
			switch id.Col {
			case colIndex:
				lbl.SetText(fmt.Sprintf("%d", row+1))
			case colAddress:
				lbl.TextStyle = fyne.TextStyle{Monospace: true}
				lbl.SetText(rs.rec.Address)
			case colAmount:
				lbl.SetText(rs.rec.Amount)
			case colFee:
				lbl.SetText(rs.fee)
			case colStatus:
				lbl.SetText(rs.status)
				if rs.detail != "" {
					btn.Show()
					btn.OnTapped = func() {
						cur, _ := rowAt(row)
						dialog.ShowInformation(fmt.Sprintf("Recipient #%d", row+1), cur.detail, w)
					}
				}
			}
		},
	)
	recipientsTable.SetColumnWidth(colIndex, 52)
	recipientsTable.SetColumnWidth(colAddress, 470)
	recipientsTable.SetColumnWidth(colAmount, 160)
	recipientsTable.SetColumnWidth(colFee, 140)
	recipientsTable.SetColumnWidth(colStatus, 260)
	recipientsCard := widget.NewCard("Recipients", "", container.NewScroll(recipientsTable))

	importBtn := widget.NewButtonWithIcon("IMPORT LIST", theme.FolderOpenIcon(), func() {
		cb := func(rc fyne.URIReadCloser, err error) {
			if err != nil || rc == nil {
				return
			}
			defer rc.Close()
			importRecipients(a, rc.URI().Name(), rc)
		}
		fd := dialog.NewFileOpen(cb, w)
		fd.SetFilter(storage.NewExtensionFileFilter([]string{".csv", ".json", ".txt"}))
		if wd, err := os.Getwd(); err == nil {
			if l, err := storage.ListerForURI(storage.NewFileURI(wd)); err == nil {
				fd.SetLocation(l)
			}
		}
		fd.Show()
	})
	simBtn := widget.NewButtonWithIcon("SIMULATE", theme.SearchIcon(), func() {
		go runSimulate(a, estimatorSelect.Selected)
	})
	sendBtn := widget.NewButtonWithIcon("SEND", theme.MailSendIcon(), func() {
		go runSend(a)
	})
	sendBtn.Importance = widget.HighImportance
	stopBtn := widget.NewButtonWithIcon("STOP", theme.MediaStopIcon(), func() {
		if stopRun() {
			appendLogLine(a, "STOP pressed, remaining transfers will be cancelled")
		}
	})
	toolsRow := container.NewGridWithColumns(3,
		importBtn,
		widget.NewButton("RESULTS", func() { openResultsWindow(a) }),
		widget.NewButton("LOGS", func() { ensureLogWindow(a).Show() }),
	)
	runRow := container.NewGridWithColumns(3, simBtn, sendBtn, stopBtn)

	top := container.NewVBox(container.NewGridWithColumns(2, networkCard, signerCard), toolsRow, runRow)
	bg := canvas.NewLinearGradient(color.NRGBA{12, 16, 24, 255}, color.NRGBA{20, 28, 40, 255}, 90)
	w.SetContent(
		container.NewMax(
			bg,
			container.NewBorder(top, container.NewPadded(statusLbl), nil, nil, recipientsCard),
		),
	)
	go connectChain(a, settings.WSURL)
	w.ShowAndRun()
}

// importRecipients replaces the loaded list. A parse error keeps the
// previous list untouched.
func importRecipients(a fyne.App, name string, rc fyne.URIReadCloser) {
	var (
		set *transfercore.RecipientSet
		err error
	)
	if strings.EqualFold(fileExt(name), ".json") {
		set, err = transfercore.LoadJSON(rc)
	} else {
		set, err = transfercore.Load(rc)
	}
	if err != nil {
		dialog.ShowError(fmt.Errorf("import %s: %w", name, err), mainWin)
		return
	}
	if o := currentOrchestrator(); o != nil {
		if err := o.Load(set); err != nil {
			dialog.ShowError(err, mainWin)
			return
		}
	}
	chainMu.Lock()
	loaded = set
	chainMu.Unlock()
	resetRows(set)
	total, bad := set.Total(settings.TokenDecimals)
	msg := fmt.Sprintf("imported %d recipients from %s, total %s %s", set.Len(), name, transfercore.FormatUnits(total, settings.TokenDecimals), settings.TokenSymbol)
	if bad > 0 {
		msg += fmt.Sprintf(" (%d rows with invalid amount)", bad)
	}
	appendLogLine(a, msg)
}
