package ui

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// For a list of possible icons, see: https://specifications.freedesktop.org/icon-naming-spec/icon-naming-spec-latest.html
const (
	IconDialogError = "dialog-error"
	IconDialogWarn  = "dialog-warning"

	UrgencyNormal   = "normal"
	UrgencyCritical = "critical"

	notifyTimeout = 5 * time.Second
)

func NotifyWarn(title, text string) {
	NotifySend(UrgencyNormal, title, text, IconDialogWarn)
}

func NotifyError(title, text string) {
	NotifySend(UrgencyCritical, title, text, IconDialogError)
}

// NotifySend shows a desktop notification in the session of the user owning the display.
// The daemon runs as root, so notify-send is executed as that user on its session bus.
func NotifySend(urgency, title, text, icon string) {
	display, exists := os.LookupEnv("DISPLAY")
	if !exists {
		Debug("Cannot send notification, missing env variable 'DISPLAY'")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, "who").Output()
	if err != nil {
		Warning("Cannot send notification, unable to list sessions: %v", err)
		return
	}
	user, found := sessionUser(string(output), display)
	if !found {
		Warning("Cannot send notification, no session found for display %s", display)
		return
	}

	output, err = exec.CommandContext(ctx, "id", "-u", user).Output()
	uid := strings.TrimSpace(string(output))
	if err != nil || len(uid) <= 0 {
		Warning("Cannot send notification, unable to detect user id of %s: %v", user, err)
		return
	}

	cmd := exec.CommandContext(ctx, "sudo", "-u", user,
		"DISPLAY="+display,
		fmt.Sprintf("DBUS_SESSION_BUS_ADDRESS=unix:path=/run/user/%s/bus", uid),
		"notify-send",
		"-a", "legion2go",
		"-u", urgency,
		"-i", icon,
		title, text,
	)
	if err := cmd.Run(); err != nil {
		Error("Error sending notification: %v", err)
	}
}

// sessionUser returns the user of the first `who` line mentioning the display
func sessionUser(whoOutput string, display string) (string, bool) {
	for _, line := range strings.Split(whoOutput, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 || !strings.Contains(line, "("+display+")") {
			continue
		}
		return fields[0], true
	}
	return "", false
}
