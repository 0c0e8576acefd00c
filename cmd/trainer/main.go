package main

import (
	"ai-interview-go/internal/logger"
	"ai-interview-go/internal/training"

	"github.com/spf13/pflag"
)

func main() {
	opts := training.DefaultOptions()

	var logLevel string
	pflag.StringVarP(&opts.DatasetPath, "dataset", "d", "dataset/resume_data.csv", "训练数据集CSV路径")
	pflag.StringVarP(&opts.OutputDir, "output", "o", "dataset", "训练产出目录")
	pflag.IntVar(&opts.MaxFeatures, "max-features", opts.MaxFeatures, "每个向量器的词表上限")
	pflag.Float64Var(&opts.TestRatio, "test-ratio", opts.TestRatio, "测试集比例")
	pflag.Int64Var(&opts.Seed, "seed", opts.Seed, "随机种子")
	pflag.StringVar(&logLevel, "log-level", "info", "日志级别")
	pflag.Parse()

	logger.Init(logger.Config{Level: logLevel, Format: "pretty"})

	result, err := training.Run(opts)
	if err != nil {
		logger.Fatal().Err(err).Msg("训练失败")
	}

	logger.Info().
		Str("artifact", result.ArtifactPath).
		Int("training_samples", result.TrainingSamples).
		Int("test_samples", result.TestSamples).
		Float64("train_accuracy", result.TrainAccuracy).
		Float64("test_accuracy", result.TestAccuracy).
		Bool("stratified", result.Stratified).
		Msg("训练完成")
}
