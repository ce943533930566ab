package main

import (
	"github.com/spf13/cobra"
)

const serviceName = "funding_bot"

var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "funding-bot",
	Short: "Арбитраж ставки финансирования на бессрочных фьючерсах Binance",
	Long: `funding-bot входит в позицию за секунды до начисления финансирования,
ставит защитный стоп и закрывает позицию после проверки прибыли.

Конфиг: configs/$CONFIG_FILE (или --config), секреты из окружения.`,
	SilenceUsage: true,
}

// Execute собирает дерево команд и запускает cobra.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "путь к yaml-конфигу")

	rootCmd.AddCommand(
		newRunCmd(),
		newRatesCmd(),
		newVersionCmd(),
	)
}
