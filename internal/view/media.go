package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/streamvibe/streamvibe/internal/api"
	"github.com/streamvibe/streamvibe/internal/store"
)

func typeIcon(t api.MediaType) string {
	switch t {
	case api.MediaTypeVideo:
		return "▶"
	case api.MediaTypeImage:
		return "◼"
	default:
		return "?"
	}
}

// mediaRow renders one line of a media listing.
func mediaRow(m api.Media) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", typeIcon(m.Type), titleStyle.Render(m.Title))
	if m.Creator.Name != "" {
		fmt.Fprintf(&b, " %s", subtleStyle.Render("by "+m.Creator.Name))
	}
	fmt.Fprintf(&b, "  %s", Rating(m.AverageRating, m.RatingsCount))
	fmt.Fprintf(&b, "\n  %s", subtleStyle.Render(m.ID))
	if tags := Tags(m.Tags); tags != "" {
		fmt.Fprintf(&b, "  %s", tags)
	}
	return b.String()
}

// Gallery renders the gallery. Search results are shown without pagination.
func Gallery(st store.MediaState) string {
	var b strings.Builder

	if banner := ErrorBanner(st.Error); banner != "" {
		b.WriteString(banner + "\n")
	}

	if len(st.Media) == 0 {
		if st.Searching {
			fmt.Fprintf(&b, "No media found for %q\n", st.Query)
		} else {
			b.WriteString("No media found\n")
		}
		return b.String()
	}

	for _, m := range st.Media {
		b.WriteString(mediaRow(m) + "\n")
	}

	if st.Searching {
		b.WriteString(sectionStyle.Render(subtleStyle.Render(fmt.Sprintf("%s results for %q", FormatCount(len(st.Media)), st.Query))) + "\n")
		return b.String()
	}

	footer := fmt.Sprintf("Page %d of %d · %s items", st.CurrentPage, st.TotalPages, FormatCount(st.TotalCount))
	var nav []string
	if st.CurrentPage > 1 {
		nav = append(nav, fmt.Sprintf("--page %d for previous", st.CurrentPage-1))
	}
	if st.CurrentPage < st.TotalPages {
		nav = append(nav, fmt.Sprintf("--page %d for next", st.CurrentPage+1))
	}
	if len(nav) > 0 {
		footer += " · " + strings.Join(nav, ", ")
	}
	b.WriteString(sectionStyle.Render(subtleStyle.Render(footer)) + "\n")
	return b.String()
}

// Detail renders one media item with its comments.
func Detail(d *api.MediaDetail) string {
	if d == nil {
		return "Media not found\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", typeIcon(d.Type), titleStyle.Render(d.Title))
	if d.Creator.Name != "" {
		fmt.Fprintf(&b, "%s\n", subtleStyle.Render("by "+d.Creator.Name+" · "+FormatRelativeTime(d.CreatedAt)))
	}
	if d.URL != "" {
		fmt.Fprintf(&b, "%s\n", accentStyle.Render(d.URL))
	}
	if d.Caption != "" {
		fmt.Fprintf(&b, "\n%s\n", d.Caption)
	}
	if d.Location != "" {
		fmt.Fprintf(&b, "📍 %s\n", d.Location)
	}
	if tags := Tags(d.Tags); tags != "" {
		fmt.Fprintf(&b, "%s\n", tags)
	}
	fmt.Fprintf(&b, "\n%s\n", Rating(d.AverageRating, d.RatingsCount))

	b.WriteString(sectionStyle.Render(titleStyle.Render(fmt.Sprintf("Comments (%d)", len(d.Comments)))) + "\n")
	if len(d.Comments) == 0 {
		b.WriteString(subtleStyle.Render("No comments yet. Be the first to comment!") + "\n")
	}
	for _, c := range d.Comments {
		fmt.Fprintf(&b, "%s %s\n  %s\n", accentStyle.Render(c.User.Name), subtleStyle.Render(FormatRelativeTime(c.CreatedAt)), c.Text)
	}
	return b.String()
}

// FilterByType returns the items of type t, or all items when t is empty.
func FilterByType(items []api.Media, t api.MediaType) []api.Media {
	if t == "" {
		return items
	}
	return lo.Filter(items, func(m api.Media, _ int) bool {
		return m.Type == t
	})
}

// Profile renders the user card and the user's uploads, optionally filtered by type.
func Profile(user *api.User, avatar string, items []api.Media, filter api.MediaType) string {
	var b strings.Builder
	if user == nil {
		return "Not logged in\n"
	}

	fmt.Fprintf(&b, "%s %s\n", titleStyle.Render(user.Name), subtleStyle.Render("("+string(user.Role)+")"))
	fmt.Fprintf(&b, "%s\n", user.Email)
	if avatar != "" {
		fmt.Fprintf(&b, "%s\n", subtleStyle.Render(avatar))
	}

	counts := lo.CountValuesBy(items, func(m api.Media) api.MediaType { return m.Type })
	fmt.Fprintf(&b, "\n%s uploads · %s images · %s videos\n",
		FormatCount(len(items)), FormatCount(counts[api.MediaTypeImage]), FormatCount(counts[api.MediaTypeVideo]))

	if !user.CanUpload() {
		b.WriteString(subtleStyle.Render("Consumers can browse, comment and rate. Register as a creator to upload.") + "\n")
		return b.String()
	}

	filtered := FilterByType(items, filter)
	if len(filtered) == 0 {
		b.WriteString(sectionStyle.Render("No uploads yet") + "\n")
		return b.String()
	}
	b.WriteString("\n")
	for _, m := range filtered {
		b.WriteString(mediaRow(m) + "\n")
	}
	return b.String()
}

// Whoami renders the navbar identity line.
func Whoami(st store.SessionState, avatar string) string {
	if !st.IsAuthenticated {
		return "Not logged in\n"
	}
	line := fmt.Sprintf("%s <%s> %s", titleStyle.Render(st.User.Name), st.User.Email, subtleStyle.Render(string(st.User.Role)))
	if avatar != "" {
		line += "\n" + subtleStyle.Render(avatar)
	}
	return line + "\n"
}

// Uploaded renders the confirmation after an upload.
func Uploaded(m api.Media, size int64, elapsed time.Duration) string {
	return Success(fmt.Sprintf("Uploaded %q (%s in %s) as %s", m.Title, FormatFileSize(size), elapsed.Round(time.Millisecond), m.ID))
}
