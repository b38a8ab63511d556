// Package version provides build and version information.
package version

// Version is the current application version.
const Version = "0.4.0"

// Milestones:
// 0.4.0 - Textual MOC document editing, Ollama embeddings, score history
// 0.3.0 - WebSocket service mode, INI config file
// 0.2.0 - Find-the-target game with countdown and audio cues
// 0.1.0 - Initial release: sky map TUI with region popups on hover
