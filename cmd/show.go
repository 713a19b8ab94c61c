package cmd

import (
	"crypto/md5"
	"fmt"
	"image"
	"image/color" // This is the standard library color package
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/nfnt/resize"
	"golang.org/x/term"

	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/config"
	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/deck"

	colorize "github.com/fatih/color" // Rename this import to avoid the conflict
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show [deck_name]",
	Short: "Display a deck's cover with ANSI art",
	Long: `Show displays a deck from the local catalog with its cached cover
rendered as ANSI terminal art.

The cover must be in the local cache; run 'karuta sync' first if it is
missing. Use --category when the same deck name exists in several
categories.

Examples:
  karuta show hearts
  karuta show --category anime hearts`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newEnvironment()
		if err != nil {
			return err
		}
		defer env.close()

		records, taxonomy, err := loadCatalog(env)
		if err != nil {
			return err
		}

		categoryFlag, _ := cmd.Flags().GetString("category")
		selected, err := resolveDecks(records, taxonomy, args, categoryFlag)
		if err != nil {
			return err
		}
		rec := records[selected[0]]

		if rec.Cover == "" {
			return fmt.Errorf("deck %s has no cover", rec.Name)
		}
		coverPath := env.store.CoverPath(rec.Cover)
		if _, err := os.Stat(coverPath); os.IsNotExist(err) {
			return fmt.Errorf("cover not cached for %s, run 'karuta sync' first", rec.Name)
		}

		// Get the ANSI art
		ansiPath, err := coverAnsiPath(coverPath)
		if err != nil {
			return fmt.Errorf("error preparing ANSI art: %v", err)
		}

		ansiArt, err := loadAnsiArt(ansiPath)
		if err != nil {
			return fmt.Errorf("error loading ANSI art: %v", err)
		}

		categoryName := taxonomy.Categories[rec.Category].Name
		cardCount := -1
		if cards, err := env.store.LoadCards(categoryName, rec.Name); err == nil {
			cardCount = len(cards)
		}

		// Display the deck info with ANSI art
		displayDeck(rec, taxonomy, cardCount, ansiArt)

		return nil
	},
}

func init() {
	RootCmd.AddCommand(showCmd)

	showCmd.Flags().StringP("category", "c", "", "Restrict the deck lookup to one category")
}

// coverAnsiPath returns the path of the generated ANSI art for a cover,
// converting and caching it on first use
func coverAnsiPath(coverPath string) (string, error) {
	cacheDir := filepath.Join(config.GetCacheDir(), "ansi_cache")
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create ANSI cache directory: %v", err)
	}

	// Create a cache filename based on the cover path
	cacheFilename := fmt.Sprintf("%x.ansi", md5.Sum([]byte(coverPath)))
	cachePath := filepath.Join(cacheDir, cacheFilename)

	// Check if we already have a cached version
	if _, err := os.Stat(cachePath); !os.IsNotExist(err) {
		return cachePath, nil
	}

	// Generate new ANSI art
	if err := generateAnsiArt(coverPath, cachePath); err != nil {
		return "", fmt.Errorf("failed to generate ANSI art: %v", err)
	}

	return cachePath, nil
}

// generateAnsiArt converts an image file to ANSI art and saves it to the specified output path
func generateAnsiArt(imagePath, outputPath string) error {
	// Open the image file
	file, err := os.Open(imagePath)
	if err != nil {
		return fmt.Errorf("failed to open image: %v", err)
	}
	defer file.Close()

	// Decode the image
	img, _, err := image.Decode(file)
	if err != nil {
		return fmt.Errorf("failed to decode image: %v", err)
	}

	// Generate ANSI art
	ansiArt, err := imageToAnsi(img, 40, 32, true)
	if err != nil {
		return fmt.Errorf("failed to convert image to ANSI: %v", err)
	}

	// Write to file
	if err := os.WriteFile(outputPath, []byte(ansiArt), 0644); err != nil {
		return fmt.Errorf("failed to write ANSI art to file: %v", err)
	}

	return nil
}

// imageToAnsi converts an image to ANSI art
func imageToAnsi(img image.Image, width, height int, use256Colors bool) (string, error) {
	// Resize image to desired dimensions (doubled for half-block characters)
	resized := resize.Resize(uint(width*2), uint(height*2), img, resize.Lanczos3)

	// Create a buffer for the ANSI output
	var buffer strings.Builder

	// Process the image
	for y := 0; y < height*2; y += 2 {
		for x := 0; x < width*2; x += 2 {
			// Get the four pixels that will make up one character cell
			c1 := getColorAt(resized, x, y)
			c2 := getColorAt(resized, x+1, y)
			c3 := getColorAt(resized, x, y+1)
			c4 := getColorAt(resized, x+1, y+1)

			// Use the upper half block character for simplicity and reliability
			// Top pixels as foreground, bottom pixels as background
			col1, _ := colorful.MakeColor(c1)
			col2, _ := colorful.MakeColor(c2)
			col3, _ := colorful.MakeColor(c3)
			col4, _ := colorful.MakeColor(c4)

			// Calculate average colors
			upperHalfFg := averageColor(col1, col2)
			lowerHalfBg := averageColor(col3, col4)

			// Convert to standard colors
			fg := colorfulToColor(upperHalfFg)
			bg := colorfulToColor(lowerHalfBg)

			// Append to buffer with the upper half block character
			buffer.WriteString(ansiColorString('▀', fg, bg, use256Colors))
		}
		buffer.WriteString("\n")
	}

	return buffer.String(), nil
}

// getColorAt returns the color at a specific coordinate
func getColorAt(img image.Image, x, y int) color.Color {
	bounds := img.Bounds()
	if x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y {
		return img.At(x, y)
	}
	return color.RGBA{0, 0, 0, 255} // Return black for out-of-bounds
}

// averageColor calculates the average of multiple colors
func averageColor(colors ...colorful.Color) colorful.Color {
	var r, g, b float64
	for _, c := range colors {
		r += c.R
		g += c.G
		b += c.B
	}
	count := float64(len(colors))
	return colorful.Color{R: r / count, G: g / count, B: b / count}
}

// colorfulToColor converts a colorful.Color to a standard color.Color
func colorfulToColor(c colorful.Color) color.Color {
	// Always return direct RGB values rather than mapping
	r := uint8(c.R * 255)
	g := uint8(c.G * 255)
	b := uint8(c.B * 255)

	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// ansiColorString formats a character with ANSI color codes
func ansiColorString(char rune, fg, bg color.Color, use256Colors bool) string {
	// Get RGB values for foreground and background
	r1, g1, b1, _ := fg.RGBA()
	r2, g2, b2, _ := bg.RGBA()

	// Convert from uint32 to uint8 (RGBA() returns values in range 0-65535)
	r1, g1, b1 = r1>>8, g1>>8, b1>>8
	r2, g2, b2 = r2>>8, g2>>8, b2>>8

	if use256Colors {
		return fmt.Sprintf("\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm%c\x1b[0m",
			r1, g1, b1, r2, g2, b2, char)
	}

	// Simplified 16-color version as fallback
	return string(char)
}

// loadAnsiArt loads the ANSI art from a file
func loadAnsiArt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// wrapText wraps text to a specified width
func wrapText(text string, width int) []string {
	// Ensure width is reasonable
	if width < 10 {
		width = 40 // Use a sensible default if width is too small
	}

	var result []string
	var currentLine string
	words := strings.Fields(text)

	if len(words) == 0 {
		return []string{""}
	}

	for _, word := range words {
		// Check if adding this word would exceed the width
		if len(currentLine) == 0 {
			// First word on the line, always add it
			currentLine = word
		} else if len(currentLine)+1+len(word) <= width {
			// Word fits on current line with a space
			currentLine += " " + word
		} else {
			// Word doesn't fit, start a new line
			result = append(result, currentLine)
			currentLine = word
		}
	}

	// Add the last line if not empty
	if currentLine != "" {
		result = append(result, currentLine)
	}

	return result
}

// displayDeck displays the deck information with ANSI art
func displayDeck(rec deck.Record, taxonomy deck.Taxonomy, cardCount int, ansiArt string) {
	// Split the ANSI art into lines
	ansiLines := strings.Split(ansiArt, "\n")
	maxAnsiWidth := 0
	for _, line := range ansiLines {
		// Calculate the visible width (excluding ANSI escape sequences)
		visibleWidth := len(stripAnsi(line))
		if visibleWidth > maxAnsiWidth {
			maxAnsiWidth = visibleWidth
		}
	}

	// Get terminal width
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		width = 80 // Default if we can't get terminal width
	}

	// Prepare the info lines
	var infoLines []string

	downloaded := "no"
	if rec.Downloaded {
		downloaded = "yes"
	}

	infoLines = append(infoLines, colorize.CyanString("Deck:       ")+colorize.HiWhiteString(rec.Name))
	infoLines = append(infoLines, colorize.CyanString("Category:   ")+colorize.HiWhiteString(taxonomy.Categories[rec.Category].Name))
	infoLines = append(infoLines, colorize.CyanString("Type:       ")+colorize.HiWhiteString(taxonomy.Types[rec.Type]))
	if cardCount >= 0 {
		infoLines = append(infoLines, colorize.CyanString("Cards:      ")+colorize.HiWhiteString("%d", cardCount))
	}
	infoLines = append(infoLines, colorize.CyanString("Downloaded: ")+colorize.HiWhiteString(downloaded))

	// Calculate layout
	// We'll display the ANSI art on the left and info on the right
	spacing := 4
	infoStartCol := maxAnsiWidth + spacing

	// Calculate available width for text, ensuring it's at least 20 characters
	infoWidth := width - infoStartCol - 2 // Leave a small margin
	if infoWidth < 20 {
		infoWidth = 20 // Minimum width for text
	}

	if !rec.Downloaded {
		infoLines = append(infoLines, "")
		hint := "Card media not cached. Run 'karuta deck download " + rec.Name + "' to fetch it."
		infoLines = append(infoLines, wrapText(hint, infoWidth)...)
	}

	// Print the header
	fmt.Println()

	// Print each line
	maxLines := max(len(ansiLines), len(infoLines))
	for i := 0; i < maxLines; i++ {
		// Print 2-character wide left padding
		fmt.Print("  ")
		// Print ANSI art line if available
		if i < len(ansiLines) {
			fmt.Print(ansiLines[i])
			// Pad to infoStartCol
			visibleWidth := len(stripAnsi(ansiLines[i]))
			fmt.Print(strings.Repeat(" ", infoStartCol-visibleWidth))
		} else {
			fmt.Print(strings.Repeat(" ", infoStartCol))
		}

		// Print info line if available
		if i < len(infoLines) {
			fmt.Print(infoLines[i])
		}

		fmt.Println()
	}

	fmt.Println()
}

// stripAnsi removes ANSI escape sequences from a string
func stripAnsi(s string) string {
	var result strings.Builder
	inEscape := false
	for _, c := range s {
		if inEscape {
			if c == 'm' {
				inEscape = false
			}
		} else if c == '\033' {
			inEscape = true
		} else {
			result.WriteRune(c)
		}
	}
	return result.String()
}

// max returns the maximum of two integers
func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
