package domain

import "time"

// Profile is the remote identity an api key belongs to.
type Profile struct {
	ID          int64  `json:"id"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Developer   bool   `json:"developer,omitempty"`
	PressUser   bool   `json:"press_user,omitempty"`
}

// Credentials is the active login: an api key and the profile it was issued for.
type Credentials struct {
	Key string  `json:"key"`
	Me  Profile `json:"me"`
}

type RememberedSession struct {
	Key           string    `json:"key"`
	Me            Profile   `json:"me"`
	LastConnected time.Time `json:"last_connected"`
}

func (s RememberedSession) Credentials() Credentials {
	return Credentials{Key: s.Key, Me: s.Me}
}

type Game struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	URL            string `json:"url,omitempty"`
	Classification string `json:"classification,omitempty"`
	InPressSystem  bool   `json:"in_press_system"`
	MinPrice       int64  `json:"min_price,omitempty"`
}

// DownloadKey grants OwnerID access to GameID.
type DownloadKey struct {
	ID        int64     `json:"id"`
	GameID    int64     `json:"game_id"`
	OwnerID   int64     `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Cave is a local install of a game.
type Cave struct {
	ID          string    `json:"id"`
	GameID      int64     `json:"game_id"`
	InstallPath string    `json:"install_path,omitempty"`
	InstalledAt time.Time `json:"installed_at"`
}

// GameCredentials is what should be used to access a game's uploads.
// A nil *GameCredentials means no access is possible (logged out).
type GameCredentials struct {
	APIKey      string       `json:"api_key"`
	DownloadKey *DownloadKey `json:"download_key"`
}

type Download struct {
	ID            string    `json:"id"`
	GameID        int64     `json:"game_id"`
	APIKey        string    `json:"-"`
	DownloadKeyID int64     `json:"download_key_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	QueuedAt      time.Time `json:"queued_at"`
}

// LocalizedString is a localization key plus its substitution variables.
type LocalizedString struct {
	Key       string            `json:"key"`
	Variables map[string]string `json:"variables,omitempty"`
}

type ModalButton struct {
	ID     string          `json:"id"`
	Label  LocalizedString `json:"label"`
	Icon   string          `json:"icon,omitempty"`
	Action *Action         `json:"action,omitempty"`
}

type Modal struct {
	ID      string          `json:"id"`
	Title   LocalizedString `json:"title"`
	Message LocalizedString `json:"message"`
	Buttons []ModalButton   `json:"buttons"`
}

// TabData is what fetchers push for a tab.
type TabData struct {
	Path  string `json:"path"`
	Label string `json:"label,omitempty"`
	Game  *Game  `json:"game,omitempty"`
}
