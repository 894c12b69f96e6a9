package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"resumerag/internal/common"
	"resumerag/internal/evaluator"
	"resumerag/internal/types"
)

// documentFlags are shared by every one-shot command.
type documentFlags struct {
	output common.CommandConfig
	input  common.DocumentInput
}

func (f *documentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.input.ResumeFile, "resume", "", "Resume file (PDF, DOCX or text)")
	cmd.Flags().StringVar(&f.input.ResumeText, "resume-text", "", "Resume as inline text (ignored when --resume is set)")
	cmd.Flags().StringVar(&f.input.JDFile, "jd", "", "Job description file (PDF, DOCX or text)")
	cmd.Flags().StringVar(&f.input.JDText, "jd-text", "", "Job description as inline text (ignored when --jd is set)")
	cmd.Flags().StringVarP(&f.output.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&f.output.OutputFormat, "format", "", "Output format: json, text, or markdown")

	// Add completion for format flag
	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		// Apply default format if not specified
		if f.output.OutputFormat == "" {
			f.output.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(f.output.OutputFormat, cfg.App.SupportedFormats)
	}
}

// runCapability builds a runtime, runs one evaluator capability and writes
// its formatted result.
func runCapability[Output any](
	cmd *cobra.Command,
	name string,
	flags *documentFlags,
	prepare func(*evaluator.Request),
	pick func(*evaluator.Evaluator) common.CapabilityFunc[Output],
) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	rt, err := newRuntime(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	cmdConfig := flags.output
	cmdConfig.MaxFileSize = cfg.App.MaxFileSize

	if err := common.RunCapability(ctx, logger, cmdConfig, flags.input, prepare, pick(rt.evaluator)); err != nil {
		return fmt.Errorf("failed to %s: %w", name, err)
	}
	logger.Info("Command completed successfully", "command", cmd.Name())
	return nil
}

var (
	analyzeFlags documentFlags

	questionsFlags   documentFlags
	questionsOptions types.QuestionOptions

	feedbackFlags                    documentFlags
	feedbackQuestion, feedbackAnswer string
	feedbackHistoryID                string

	idealFlags    documentFlags
	idealQuestion string

	askFlags    documentFlags
	askQuestion string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a resume against a job description",
	Long: `Produce an ATS-style analysis of a resume against a job description:
a match score, strengths, weaknesses, missing keywords and suggestions.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCapability(cmd, "analyze resume", &analyzeFlags, nil,
			func(ev *evaluator.Evaluator) common.CapabilityFunc[*types.AnalysisResult] {
				return ev.AnalyzeResume
			})
	},
}

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Generate mock interview questions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCapability(cmd, "generate questions", &questionsFlags,
			func(req *evaluator.Request) { req.Options = questionsOptions },
			func(ev *evaluator.Evaluator) common.CapabilityFunc[[]types.InterviewQuestion] {
				return ev.GenerateQuestions
			})
	},
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Get feedback on an interview answer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCapability(cmd, "review answer", &feedbackFlags,
			func(req *evaluator.Request) {
				req.Question = feedbackQuestion
				req.Answer = feedbackAnswer
				req.HistoryID = feedbackHistoryID
			},
			func(ev *evaluator.Evaluator) common.CapabilityFunc[*types.FeedbackResult] {
				return ev.AnswerFeedback
			})
	},
}

var idealCmd = &cobra.Command{
	Use:   "ideal",
	Short: "Write an ideal answer to an interview question",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCapability(cmd, "write ideal answer", &idealFlags,
			func(req *evaluator.Request) { req.Question = idealQuestion },
			func(ev *evaluator.Evaluator) common.CapabilityFunc[*types.IdealAnswer] {
				return ev.IdealAnswer
			})
	},
}

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a free-form question about the resume and job description",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCapability(cmd, "answer question", &askFlags,
			func(req *evaluator.Request) { req.Question = askQuestion },
			func(ev *evaluator.Evaluator) common.CapabilityFunc[*types.AskResult] {
				return ev.Ask
			})
	},
}

func init() {
	analyzeFlags.register(analyzeCmd)

	questionsFlags.register(questionsCmd)
	qf := questionsCmd.Flags()
	qf.IntVarP(&questionsOptions.NumQuestions, "num-questions", "n", types.DefaultNumQuestions,
		fmt.Sprintf("Number of questions (max %d)", types.MaxNumQuestions))
	qf.StringVar(&questionsOptions.SkillFocus, "skill-focus", "", "Skill to focus the questions on")
	qf.StringVar(&questionsOptions.QuestionType, "question-type", "", "Question type, e.g. Technical or Behavioral")
	qf.StringVar(&questionsOptions.QuestionDifficulty, "difficulty", "", "Question difficulty: Easy, Medium or Hard")
	qf.StringVar(&questionsOptions.ExperienceLevel, "experience-level", "", "Candidate experience level")
	qf.StringVar(&questionsOptions.RoundType, "round-type", "", "Interview round, e.g. Screening or Onsite")
	qf.StringVar(&questionsOptions.TargetJobRole, "target-role", "", "Target job role")

	feedbackFlags.register(feedbackCmd)
	feedbackCmd.Flags().StringVarP(&feedbackQuestion, "question", "q", "", "Interview question")
	feedbackCmd.Flags().StringVarP(&feedbackAnswer, "answer", "a", "", "Candidate answer to review")
	feedbackCmd.Flags().StringVar(&feedbackHistoryID, "history-id", "", "Interview history record to count the answer against")

	idealFlags.register(idealCmd)
	idealCmd.Flags().StringVarP(&idealQuestion, "question", "q", "", "Interview question")

	askFlags.register(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "Question about the documents")
}
