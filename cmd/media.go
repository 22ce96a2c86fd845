package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/streamvibe/streamvibe/internal/api"
	"github.com/streamvibe/streamvibe/internal/gravatar"
	"github.com/streamvibe/streamvibe/internal/store"
	"github.com/streamvibe/streamvibe/internal/view"
	"golang.org/x/sync/errgroup"
)

var showCmdFlags struct {
	Comment string
	Rate    float64
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a media item with its comments and rating",
	Example: `streamvibe show 64f1c0ffee
  streamvibe show 64f1c0ffee --comment "Lovely light" --rate 4.5`,
	Args: cobra.ExactArgs(1),
	RunE: show,
}

var uploadCmdFlags struct {
	Title    string
	Caption  string
	Location string
	Type     string
	Tags     []string
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload an image or a video",
	Long:  `Upload an image or a video. Only creators can upload. The media type is detected from the file content unless --type is given.`,
	Example: `streamvibe upload sunset.jpg --title "Sunset" --location Lisbon --tag sky --tag sea`,
	Args:    cobra.ExactArgs(1),
	RunE:    upload,
}

var profileCmdFlags struct {
	Type string
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show your profile and your uploads",
	Example: `streamvibe profile
  streamvibe profile --type video`,
	Args: cobra.NoArgs,
	RunE: profile,
}

var deleteCmdFlags struct {
	Yes bool
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one of your uploads",
	Args:  cobra.ExactArgs(1),
	RunE:  deleteMedia,
}

func init() {
	showCmd.Flags().StringVar(&showCmdFlags.Comment, "comment", "", "Add a comment")
	showCmd.Flags().Float64Var(&showCmdFlags.Rate, "rate", 0, "Rate from 0.5 to 5 stars in half steps")

	uploadCmd.Flags().StringVar(&uploadCmdFlags.Title, "title", "", "Title (at least 3 characters)")
	uploadCmd.Flags().StringVar(&uploadCmdFlags.Caption, "caption", "", "Caption")
	uploadCmd.Flags().StringVar(&uploadCmdFlags.Location, "location", "", "Where it was taken")
	uploadCmd.Flags().StringVar(&uploadCmdFlags.Type, "type", "", "Media type (image, video), detected from content when empty")
	uploadCmd.Flags().StringArrayVarP(&uploadCmdFlags.Tags, "tag", "t", nil, "Tag, may be repeated")

	profileCmd.Flags().StringVar(&profileCmdFlags.Type, "type", "", "Only show uploads of this type (image, video)")

	deleteCmd.Flags().BoolVarP(&deleteCmdFlags.Yes, "yes", "y", false, "Do not ask for confirmation")

	rootCmd.AddCommand(showCmd, uploadCmd, profileCmd, deleteCmd)
}

func show(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if err := a.restore(ctx); err != nil {
		return err
	}

	id := args[0]
	if err := a.media.FetchMediaByID(ctx, id); err != nil {
		return err
	}
	defer a.media.ClearCurrentMedia()

	g, gctx := errgroup.WithContext(ctx)
	if cmd.Flags().Changed("comment") {
		g.Go(func() error {
			return a.media.AddComment(gctx, id, showCmdFlags.Comment)
		})
	}
	if cmd.Flags().Changed("rate") {
		g.Go(func() error {
			return a.media.AddRating(gctx, id, showCmdFlags.Rate)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), view.Detail(a.media.Snapshot().CurrentMedia))
	return nil
}

func upload(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	user, err := a.requireLogin(ctx)
	if err != nil {
		return err
	}
	if !user.CanUpload() {
		return errors.New("Only creators can upload media") //nolint:staticcheck
	}

	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	contentType, detected, err := api.SniffFile(path)
	if err != nil {
		return err
	}

	mediaType := api.MediaType(uploadCmdFlags.Type)
	if mediaType == "" {
		mediaType = detected
	}
	log.Debug("uploading file", "path", path, "size", view.FormatFileSize(info.Size()), "content_type", contentType, "type", mediaType)

	file, err := os.Open(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close() //nolint:errcheck

	start := time.Now()
	if err := a.media.UploadMedia(ctx, store.UploadForm{
		File:        file,
		FileName:    filepath.Base(path),
		ContentType: contentType,
		Title:       uploadCmdFlags.Title,
		Caption:     uploadCmdFlags.Caption,
		Location:    uploadCmdFlags.Location,
		Type:        mediaType,
		Tags:        store.NewTagList(uploadCmdFlags.Tags...),
	}); err != nil {
		return err
	}

	created := a.media.Snapshot().UserMedia[0]
	fmt.Fprintln(cmd.OutOrStdout(), view.Uploaded(created, info.Size(), time.Since(start)))
	return nil
}

func profile(cmd *cobra.Command, _ []string) error {
	filter := api.MediaType(strings.ToLower(profileCmdFlags.Type))
	if filter != "" && !filter.Valid() {
		return &store.ValidationError{Field: "type", Message: fmt.Sprintf("unknown media type %q", profileCmdFlags.Type)}
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	user, err := a.requireLogin(ctx)
	if err != nil {
		return err
	}
	if err := a.media.FetchUserMedia(ctx); err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), view.Profile(user, gravatar.AvatarURL(user, a.cfg.Gravatar), a.media.Snapshot().UserMedia, filter))
	return nil
}

func deleteMedia(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if _, err := a.requireLogin(ctx); err != nil {
		return err
	}

	id := args[0]
	if !deleteCmdFlags.Yes && !confirm(cmd, fmt.Sprintf("Are you sure you want to delete %s? [y/N] ", id)) {
		fmt.Fprintln(cmd.OutOrStdout(), view.Subtle("Cancelled"))
		return nil
	}

	if err := a.media.DeleteMedia(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), view.Success("Deleted "+id))
	return nil
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
