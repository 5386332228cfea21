package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"ad-studio/internal/ai"
	"ad-studio/internal/config"
	"ad-studio/internal/logger"
	"ad-studio/internal/media"
	"ad-studio/internal/pipeline"
	"ad-studio/internal/review"
	"ad-studio/internal/script"
	"ad-studio/internal/storage"
	"ad-studio/internal/veo"
)

func main() {
	pipelinePath := flag.String("pipeline", "config/pipeline.yaml", "Path to the pipeline config file")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config Error: %v", err)
	}

	logg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Logger Error: %v", err)
	}
	defer logg.Sync()

	pipe, err := config.LoadPipeline(*pipelinePath)
	if err != nil {
		log.Fatalf("Pipeline Config Error: %v", err)
	}

	aiService, err := ai.NewService(ctx, cfg, logg)
	if err != nil {
		log.Fatalf("AI Service Error: %v", err)
	}
	store, err := storage.NewGCSGateway(ctx, logg)
	if err != nil {
		log.Fatalf("Storage Error: %v", err)
	}

	writer := script.NewClient(logg, aiService, pipe)
	clips := veo.NewClient(logg, aiService, store, cfg.Bucket, pipe)
	assembler := media.NewAssembler(logg, store, cfg.Bucket, pipe)
	studio := pipeline.NewStudio(logg, writer, clips, assembler)

	scanner := bufio.NewScanner(os.Stdin)
	var current *review.Session

	for {
		fmt.Println("\n=== Ad Studio ===")
		fmt.Println("1. New ad from idea")
		if current != nil {
			fmt.Println("2. Show scenes")
			fmt.Println("3. Edit scene prompt")
			fmt.Println("4. Select candidate")
			fmt.Println("5. Confirm scene")
			fmt.Println("6. Unconfirm scene")
			fmt.Println("7. Regenerate scene")
			fmt.Println("8. Finalize ad")
		}
		fmt.Println("0. Exit")
		fmt.Print("Select option: ")

		if !scanner.Scan() {
			break
		}

		switch scanner.Text() {
		case "1":
			current = createSession(ctx, studio, pipe, scanner)
		case "2":
			showScenes(current)
		case "3":
			editScene(current, scanner)
		case "4":
			selectCandidate(current, scanner)
		case "5":
			confirmScene(current, scanner)
		case "6":
			unconfirmScene(current, scanner)
		case "7":
			regenerateScene(ctx, current, scanner)
		case "8":
			finalize(ctx, studio, current)
		case "0":
			fmt.Println("Exiting...")
			return
		default:
			fmt.Println("Invalid choice")
		}
	}
}

func createSession(ctx context.Context, studio *pipeline.Studio, pipe *config.Pipeline, scanner *bufio.Scanner) *review.Session {
	fmt.Print("Describe your ad idea: ")
	if !scanner.Scan() {
		return nil
	}
	idea := strings.TrimSpace(scanner.Text())
	if idea == "" {
		fmt.Println("Idea cannot be empty.")
		return nil
	}

	settings := review.Settings{
		AspectRatio:      pipe.Veo.AspectRatio,
		PersonGeneration: pipe.Veo.PersonGeneration,
	}
	fmt.Print("Product image gs:// URI (optional, blank to skip): ")
	if !scanner.Scan() {
		return nil
	}
	if uri := strings.TrimSpace(scanner.Text()); uri != "" {
		loc, err := storage.ParseLocator(uri)
		if err != nil {
			fmt.Printf("Not a valid gs:// URI: %v\n", err)
			return nil
		}
		settings.ReferenceImage = loc
	}

	fmt.Println("Expanding idea and generating clips, this takes a few minutes...")
	sess, err := studio.CreateSession(ctx, idea, settings)
	if err != nil {
		log.Printf("Session failed: %v", err)
		return nil
	}
	fmt.Printf("Session %s ready for review.\n", sess.ID)
	showScenes(sess)
	return sess
}

func showScenes(sess *review.Session) {
	if sess == nil {
		fmt.Println("No active session.")
		return
	}
	for _, sc := range sess.Scenes() {
		fmt.Printf("\n--- Scene %d [%s] ---\n", sc.SceneIndex, sc.Status())
		fmt.Printf("Prompt: %s\n", sc.PromptText)
		for i, clip := range sc.Candidates {
			marker := " "
			if i == sc.SelectedIndex {
				marker = "*"
			}
			fmt.Printf("  %s [%d] %s\n", marker, i, clip.PlayableURL)
		}
		if sc.LastError != "" {
			fmt.Printf("  Last error: %s\n", sc.LastError)
		}
	}
}

func askScene(sess *review.Session, scanner *bufio.Scanner) (int, bool) {
	if sess == nil {
		fmt.Println("No active session.")
		return 0, false
	}
	fmt.Printf("Scene index (0-%d): ", sess.SceneCount()-1)
	if !scanner.Scan() {
		return 0, false
	}
	idx, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		fmt.Println("Not a number.")
		return 0, false
	}
	return idx, true
}

func editScene(sess *review.Session, scanner *bufio.Scanner) {
	idx, ok := askScene(sess, scanner)
	if !ok {
		return
	}
	fmt.Print("New prompt: ")
	if !scanner.Scan() {
		return
	}
	if err := sess.EditPrompt(idx, scanner.Text()); err != nil {
		log.Printf("Edit failed: %v", err)
		return
	}
	fmt.Println("Prompt updated. Regenerate to render it.")
}

func selectCandidate(sess *review.Session, scanner *bufio.Scanner) {
	idx, ok := askScene(sess, scanner)
	if !ok {
		return
	}
	fmt.Print("Candidate number: ")
	if !scanner.Scan() {
		return
	}
	candidate, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		fmt.Println("Not a number.")
		return
	}
	if err := sess.SelectCandidate(idx, candidate); err != nil {
		log.Printf("Select failed: %v", err)
	}
}

func confirmScene(sess *review.Session, scanner *bufio.Scanner) {
	idx, ok := askScene(sess, scanner)
	if !ok {
		return
	}
	if err := sess.Confirm(idx); err != nil {
		log.Printf("Confirm failed: %v", err)
		return
	}
	if sess.Ready() {
		fmt.Println("All scenes confirmed. Ready to finalize.")
	}
}

func unconfirmScene(sess *review.Session, scanner *bufio.Scanner) {
	idx, ok := askScene(sess, scanner)
	if !ok {
		return
	}
	if err := sess.Unconfirm(idx); err != nil {
		log.Printf("Unconfirm failed: %v", err)
	}
}

func regenerateScene(ctx context.Context, sess *review.Session, scanner *bufio.Scanner) {
	idx, ok := askScene(sess, scanner)
	if !ok {
		return
	}
	fmt.Println("Regenerating, this takes a few minutes...")
	if err := sess.Regenerate(ctx, idx); err != nil {
		log.Printf("Regenerate failed: %v", err)
	}
}

func finalize(ctx context.Context, studio *pipeline.Studio, sess *review.Session) {
	if sess == nil {
		fmt.Println("No active session.")
		return
	}
	fmt.Println("\n--- Stitching Final Ad ---")
	res, err := studio.Finalize(ctx, sess.ID)
	if err != nil {
		log.Printf("Finalize failed: %v", err)
		return
	}
	fmt.Printf("SUCCESS! Ad ready at: %s\n", res.PlayableURL)
	fmt.Printf("Stored at: %s\n", res.Locator)
}
