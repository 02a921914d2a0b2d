// cmd/demo/main.go
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
	"time"
	"unicode/utf8"

	"github.com/Corphon/LessonReel/internal/app"
	"github.com/Corphon/LessonReel/internal/config"
	"github.com/Corphon/LessonReel/internal/di"
	"github.com/Corphon/LessonReel/internal/models"
	"github.com/Corphon/LessonReel/internal/services"
	"github.com/Corphon/LessonReel/internal/utils"
)

func main() {
	voiceID := flag.String("voice", "voice-1", "voice id from the catalog")
	topicID := flag.String("topic", "", "preset topic id, e.g. topic-4")
	customTopic := flag.String("custom", "", "custom topic name")
	prompt := flag.String("prompt", "", "extra instructions, e.g. \"pirate themed, shorter\"")
	flag.Parse()

	fmt.Println("🎬 LessonReel Demo")
	fmt.Println("==================")

	baseConfig, err := config.Load()
	if err != nil {
		log.Fatalf("❌ 加载基础配置失败: %v", err)
	}
	// 控制台输出保持简洁
	utils.GetLogger().SetLogLevel(utils.WARNING)

	if err := config.InitConfig(baseConfig.DataDir); err != nil {
		log.Fatalf("❌ 初始化配置系统失败: %v", err)
	}
	baseConfig.SweepSchedule = ""
	if err := app.InitServices(baseConfig); err != nil {
		log.Fatalf("❌ 初始化服务失败: %v", err)
	}
	container := di.GetContainer()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		app.Shutdown(ctx, container)
	}()

	generation, err := di.Resolve[*services.GenerationService](container, "generation")
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	reader := bufio.NewReader(os.Stdin)
	if *topicID == "" && *customTopic == "" {
		*topicID = chooseTopic(reader, generation)
	}

	body := models.GenerateVideoBody{VoiceID: *voiceID, TopicID: *topicID, CustomTopic: *customTopic, Prompt: *prompt}
	if err := services.ValidateRequest(body); err != nil {
		log.Fatalf("❌ %v", err)
	}

	start := time.Now()
	artifact, err := generation.Generate(context.Background(), body.ToRequest(), printProgress)
	fmt.Println()
	if err != nil {
		log.Fatalf("❌ 生成失败: %v", err)
	}

	fmt.Printf("✅ 完成，用时 %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("   页面: %s\n", artifact.HTMLPath)
	fmt.Printf("   地址: %s\n", artifact.PublicURL)
	if artifact.HasAudio() {
		fmt.Printf("   旁白: %s\n", artifact.AudioPath)
	} else {
		fmt.Println("   旁白: 无（未配置语音或合成失败）")
	}

	printOutline(artifact.Lesson)
	walkSlides(reader, artifact.Lesson)
}

func chooseTopic(reader *bufio.Reader, generation *services.GenerationService) string {
	topics := generation.Catalog().Topics
	fmt.Println("\n可选主题:")
	for i, t := range topics {
		fmt.Printf("  %d. %s (%s)\n", i+1, t.Name, t.ID)
	}
	fmt.Print("请选择主题编号 [1]: ")

	line, _ := reader.ReadString('\n')
	choice, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || choice < 1 || choice > len(topics) {
		choice = 1
	}
	return topics[choice-1].ID
}

func printProgress(progress int, message string) {
	const width = 30
	filled := width * progress / 100
	fmt.Printf("\r[%s%s] %3d%% %-28s", strings.Repeat("█", filled), strings.Repeat("░", width-filled), progress, message)
}

func printOutline(lesson *models.LessonContent) {
	if lesson == nil {
		return
	}
	fmt.Printf("\n📚 %s  (%s)\n", lesson.Title, lesson.Source)
	for i, slide := range lesson.Slides {
		fmt.Printf("  %d. %s\n", i+1, slide.Title)
	}
	if lesson.VoiceDelivery != "" {
		fmt.Printf("  语气提示: %s\n", lesson.VoiceDelivery)
	}
	fmt.Printf("  旁白稿 %d 字符\n", utf8.RuneCountInString(lesson.Script))
}

// walkSlides 在终端中翻阅幻灯片：n 下一页，p 上一页，q 退出
func walkSlides(reader *bufio.Reader, lesson *models.LessonContent) {
	if lesson == nil || len(lesson.Slides) == 0 {
		return
	}
	nav := services.NewNavigator(len(lesson.Slides))
	for {
		slide := lesson.Slides[nav.Current()]
		fmt.Printf("\n── %d / %d ── %s\n%s\n", nav.Current()+1, nav.Total(), slide.Title, slide.Content)
		fmt.Print("[n]ext [p]rev [q]uit: ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		switch strings.TrimSpace(strings.ToLower(line)) {
		case "n", "":
			if !nav.Next() {
				fmt.Println("已经是最后一页")
			}
		case "p":
			if !nav.Previous() {
				fmt.Println("已经是第一页")
			}
		case "q":
			return
		}
	}
}
