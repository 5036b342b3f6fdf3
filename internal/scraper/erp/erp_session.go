package erp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"ListingSweeper/internal/logger"
	"ListingSweeper/pkg/config"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// ErrEntryLinkNotFound is returned when the home page has no link to the goods tab.
var ErrEntryLinkNotFound = errors.New("entry link to the goods console not found")

const (
	menuSelector      = "ali-bar-single-menu"
	entryHrefSelector = `a[href*="pdt_puhuo.html"]`
	cookiesFile       = "cookies.json"
)

// Session owns the browser and the home tab the console is opened from.
type Session struct {
	ScraperConf config.ScraperConfig
	ConsoleConf config.ConsoleConfig
	Timeouts    config.TimeoutsConfig
	StorageDir  string

	launcher *launcher.Launcher
	browser  *rod.Browser
	home     *rod.Page
	log      *logger.Logger
}

func NewSession(cfg *config.Config, log *logger.Logger) *Session {
	if log == nil {
		log = logger.Nop()
	}
	return &Session{
		ScraperConf: cfg.Scraper,
		ConsoleConf: cfg.Console,
		Timeouts:    cfg.Timeouts,
		StorageDir:  cfg.Storage.Dir,
		log:         log,
	}
}

// Launch starts Chromium on the persistent profile and connects to it.
func (s *Session) Launch(ctx context.Context) error {
	if err := os.MkdirAll(s.ScraperConf.UserDataDir, 0o755); err != nil {
		return fmt.Errorf("creating user data dir: %w", err)
	}
	s.launcher = launcher.New().
		Headless(s.ScraperConf.Headless).
		UserDataDir(s.ScraperConf.UserDataDir).
		Set("disable-blink-features", "AutomationControlled")
	u, err := s.launcher.Launch()
	if err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}
	browser := rod.New().ControlURL(u).Context(ctx)
	if err := browser.Connect(); err != nil {
		s.launcher.Kill()
		return fmt.Errorf("connecting to browser: %w", err)
	}
	s.browser = browser
	return nil
}

// OpenHome opens the start URL in a stealth tab.
func (s *Session) OpenHome(ctx context.Context) error {
	page, err := stealth.Page(s.browser)
	if err != nil {
		return fmt.Errorf("creating stealth page: %w", err)
	}
	_ = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{Width: 1440, Height: 900, DeviceScaleFactor: 1})

	s.log.LogInfof("Navigating to %s", s.ConsoleConf.StartURL)
	if err := page.Context(ctx).Timeout(s.Timeouts.Table).Navigate(s.ConsoleConf.StartURL); err != nil {
		return fmt.Errorf("navigating to %s: %w", s.ConsoleConf.StartURL, err)
	}
	if err := page.Context(ctx).Timeout(s.Timeouts.Table).WaitLoad(); err != nil {
		s.log.LogWarnf("Home page did not finish loading: %v", err)
	}
	s.home = page
	return nil
}

// WaitForLogin returns once the top bar menu is visible, giving the user up to
// the login timeout to sign in by hand. Cookies are saved after a manual login.
func (s *Session) WaitForLogin(ctx context.Context) error {
	if el, err := s.home.Context(ctx).Sleeper(rod.NotFoundSleeper).Element(menuSelector); err == nil {
		if visible, _ := el.Visible(); visible {
			return nil
		}
	}

	s.log.LogInfof("Waiting for user to log in (up to %s)...", s.Timeouts.Login)
	page := s.home.Context(ctx).Timeout(s.Timeouts.Login)
	el, err := page.Element(menuSelector)
	if err == nil {
		err = el.WaitVisible()
	}
	if err != nil {
		return fmt.Errorf("waiting for login: %w", err)
	}
	s.log.LogInfof("Login detected, menu visible.")

	if err := s.saveCookies(); err != nil {
		s.log.LogWarnf("Failed to save cookies: %v", err)
	}
	return nil
}

func (s *Session) saveCookies() error {
	cookies, err := s.browser.GetCookies()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(s.StorageDir, cookiesFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	s.log.LogInfof("Cookies saved to %s", path)
	return nil
}

// findEntryLink looks for the goods-console link inside the menu's shadow
// root first, then anywhere on the page by href, then by text.
func (s *Session) findEntryLink(ctx context.Context) (*rod.Element, error) {
	page := s.home.Context(ctx).Sleeper(rod.NotFoundSleeper)
	text := s.ConsoleConf.EntryLink

	if menu, err := page.Element(menuSelector); err == nil {
		if root, err := menu.ShadowRoot(); err == nil {
			sel := fmt.Sprintf(`%s[title=%q]`, entryHrefSelector, text)
			if link, err := root.Sleeper(rod.NotFoundSleeper).Element(sel); err == nil {
				return link, nil
			}
		}
	}
	if link, err := page.Element(entryHrefSelector + "[title]"); err == nil {
		s.log.LogDebugf("Entry link found by href fallback")
		return link, nil
	}
	if link, err := page.ElementR("a", text); err == nil {
		s.log.LogDebugf("Entry link found by text fallback")
		return link, nil
	}
	return nil, ErrEntryLinkNotFound
}

// OpenConsole clicks the entry link and wraps the tab it opens.
func (s *Session) OpenConsole(ctx context.Context) (*Console, error) {
	link, err := s.findEntryLink(ctx)
	if err != nil {
		return nil, err
	}
	if err := link.ScrollIntoView(); err != nil {
		s.log.LogDebugf("Scrolling to entry link failed: %v", err)
	}

	wait := s.home.Context(ctx).Timeout(s.Timeouts.Table).WaitOpen()
	if err := link.Timeout(clickTimeout).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return nil, fmt.Errorf("clicking entry link: %w", err)
	}
	tab, err := wait()
	if err != nil {
		return nil, fmt.Errorf("waiting for console tab: %w", err)
	}
	if err := tab.Context(ctx).Timeout(s.Timeouts.Table).WaitLoad(); err != nil {
		s.log.LogWarnf("Console tab did not finish loading: %v", err)
	}
	if info, err := tab.Info(); err == nil {
		s.log.LogInfof("Opened: %s", info.URL)
	}
	return NewConsole(tab, s.ConsoleConf.StartURL, s.log), nil
}

// Open runs the whole bootstrap: launch, home, login, console tab.
func (s *Session) Open(ctx context.Context) (*Console, error) {
	if err := s.Launch(ctx); err != nil {
		return nil, err
	}
	if err := s.OpenHome(ctx); err != nil {
		return nil, err
	}
	if err := s.WaitForLogin(ctx); err != nil {
		return nil, err
	}
	return s.OpenConsole(ctx)
}

// Close shuts the browser down. The profile directory is kept.
func (s *Session) Close() {
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			s.log.LogDebugf("Closing browser: %v", err)
		}
	}
	if s.launcher != nil {
		s.launcher.Kill()
	}
}
