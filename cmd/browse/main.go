// Command browse is a terminal front end for the storage capability
// service: it navigates storage roots level by level and moves file bytes
// directly against signed URLs.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/omx-labs/storage-browser/internal/apiclient"
	"github.com/omx-labs/storage-browser/internal/browser"
	"github.com/omx-labs/storage-browser/internal/models"
	"github.com/omx-labs/storage-browser/internal/transfer"
	"github.com/omx-labs/storage-browser/internal/utils"
)

func main() {
	_ = godotenv.Load()

	server := flag.String("server", envOr("OMX_SERVER", "http://localhost:8080"), "capability service base URL")
	token := flag.String("token", os.Getenv("OMX_TOKEN"), "bearer token")
	project := flag.String("project", os.Getenv("OMX_PROJECT"), "project id")
	rootID := flag.String("root", os.Getenv("OMX_ROOT"), "storage root id")
	output := flag.String("o", "", "output file for get")
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	if *token == "" || *project == "" {
		fmt.Fprintln(os.Stderr, "browse: -token and -project are required")
		os.Exit(2)
	}

	client := apiclient.New(*server, *token, *project)
	orchestrator := transfer.New(client)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	if err := run(ctx, client, orchestrator, *rootID, *output, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "browse: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, client *apiclient.Client, orchestrator *transfer.Orchestrator, rootID, output string, args []string) error {
	command, rest := args[0], args[1:]

	switch command {
	case "roots":
		roots, err := client.ListRoots(ctx)
		if err != nil {
			return err
		}
		for _, root := range roots {
			fmt.Printf("%s\t%s/%s\t%s\n", root.ID, root.BucketName, root.Prefix, root.Description)
		}
		return nil

	case "buckets":
		buckets, err := client.ListBuckets(ctx)
		if err != nil {
			return err
		}
		for _, b := range buckets {
			fmt.Println(b.Name)
		}
		return nil
	}

	// Everything below operates inside one storage root.
	root, err := activeRoot(ctx, client, rootID)
	if err != nil {
		return err
	}

	switch command {
	case "ls":
		path := ""
		if len(rest) > 0 {
			path = rest[0]
		}
		nav, err := navigateTo(ctx, client, root, path)
		if err != nil {
			return err
		}
		view := nav.View()
		for _, folder := range view.Folders {
			fmt.Printf("%12s  %s/\n", "-", folder.Name)
		}
		for _, file := range view.Files {
			fmt.Printf("%12s  %s\n", utils.FormatOptionalSize(file.Size), file.DisplayName)
		}
		return nil

	case "put":
		if len(rest) < 2 {
			return fmt.Errorf("usage: put <path> <file>...")
		}
		return put(ctx, orchestrator, root, rest[0], rest[1:])

	case "get":
		if len(rest) != 1 {
			return fmt.Errorf("usage: get <key>")
		}
		return get(ctx, orchestrator, root.ID, rest[0], output)

	case "url":
		if len(rest) != 1 {
			return fmt.Errorf("usage: url <key>")
		}
		grant, err := orchestrator.DownloadURL(ctx, root.ID, rest[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s\n(expires in %ds)\n", grant.URL, grant.ExpiresIn)
		return nil

	case "rm":
		if len(rest) != 1 {
			return fmt.Errorf("usage: rm <key>")
		}
		if err := orchestrator.Delete(ctx, root.ID, rest[0]); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", rest[0])
		return nil

	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// activeRoot resolves the requested root id, defaulting to the project's
// only root when there is exactly one.
func activeRoot(ctx context.Context, client *apiclient.Client, rootID string) (models.StorageRoot, error) {
	roots, err := client.ListRoots(ctx)
	if err != nil {
		return models.StorageRoot{}, err
	}
	if rootID == "" {
		if len(roots) == 1 {
			return roots[0], nil
		}
		return models.StorageRoot{}, fmt.Errorf("project has %d storage roots, pick one with -root", len(roots))
	}
	for _, root := range roots {
		if root.ID == rootID {
			return root, nil
		}
	}
	return models.StorageRoot{}, fmt.Errorf("storage root %q not found", rootID)
}

// navigateTo walks from the root level down to path one folder at a time,
// entering only folders the listings actually report.
func navigateTo(ctx context.Context, client *apiclient.Client, root models.StorageRoot, path string) (*browser.Navigator, error) {
	nav := browser.New(client)
	if err := nav.Fetch(ctx, nav.SwitchRoot(root)); err != nil {
		return nil, err
	}

	for _, segment := range strings.Split(strings.Trim(path, "/"), "/") {
		if segment == "" {
			continue
		}
		var target *models.FolderEntry
		for _, folder := range nav.View().Folders {
			if folder.Name == segment {
				f := folder
				target = &f
				break
			}
		}
		if target == nil {
			return nil, fmt.Errorf("no folder %q under /%s", segment, strings.Join(nav.Path(), "/"))
		}
		req, err := nav.EnterFolder(*target)
		if err != nil {
			return nil, err
		}
		if err := nav.Fetch(ctx, req); err != nil {
			return nil, err
		}
	}
	return nav, nil
}

func put(ctx context.Context, orchestrator *transfer.Orchestrator, root models.StorageRoot, path string, files []string) error {
	segments := splitPath(path)

	var items []transfer.Item
	var opened []*os.File
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, name := range files {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		opened = append(opened, f)
		info, err := f.Stat()
		if err != nil {
			return err
		}
		contentType := mime.TypeByExtension(filepath.Ext(name))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		items = append(items, transfer.Item{
			Key:         browser.ObjectKey(root.Prefix, segments, filepath.Base(name)),
			ContentType: contentType,
			Body:        f,
			Size:        info.Size(),
		})
	}

	result := orchestrator.UploadAll(ctx, root.ID, items)
	for _, key := range result.Uploaded {
		fmt.Printf("uploaded %s\n", key)
	}
	if result.Failed() {
		for _, key := range result.Skipped {
			fmt.Printf("skipped  %s\n", key)
		}
		return result.Err
	}
	return nil
}

func get(ctx context.Context, orchestrator *transfer.Orchestrator, rootID, key, output string) error {
	body, err := orchestrator.Download(ctx, rootID, key)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	if output == "" {
		output = filepath.Base(key)
	}
	out, err := os.Create(output)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, body); err != nil {
		return fmt.Errorf("download %q: %w", key, err)
	}
	fmt.Printf("saved %s\n", output)
	return nil
}

func splitPath(path string) []string {
	var segments []string
	for _, segment := range strings.Split(strings.Trim(path, "/"), "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: browse [flags] <command> [args]

commands:
  roots                 list the project's storage roots
  buckets               list buckets visible to the provider credentials
  ls [path]             list one level of the active root
  put <path> <file>...  upload files into path (sequential, stops on failure)
  get <key>             download an object (use -o to name the output)
  url <key>             print a signed download URL
  rm <key>              delete an object

flags:
`)
	flag.PrintDefaults()
}
