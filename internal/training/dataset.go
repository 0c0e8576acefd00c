// Package training 实现离线训练管道:
// 数据集加载清洗、特征抽取、模型训练与工件产出。
// 这是一次性的批处理过程，与请求服务路径完全隔离，
// 唯一允许"大声失败"的地方也在这里。
package training

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"ai-interview-go/internal/textutil"
)

// 质量类别，按matched_score分箱得到
const (
	CategoryLow       = "Low"
	CategoryMedium    = "Medium"
	CategoryHigh      = "High"
	CategoryExcellent = "Excellent"
)

// RawRow 数据集中的一条原始标注记录，加载后不可变
type RawRow struct {
	JobTitle              string
	Skills                string
	CareerObjective       string
	DegreeNames           string
	MajorFieldOfStudies   string
	Positions             string
	Responsibilities      string
	SkillsRequired        string
	EducationRequirement  string
	ExperienceRequirement string
	MatchedScore          float64
}

// CleanedRow 清洗后的训练记录，全部文本字段已规范化
type CleanedRow struct {
	Raw RawRow

	SkillsCleaned           string
	PositionsCleaned        string
	ResponsibilitiesCleaned string
	SkillsRequiredCleaned   string

	SkillsList    []string
	PositionsList []string
	DegreeList    []string

	// AllSkills 候选人技能与岗位要求技能的合并语料
	AllSkills string
	// AllExperience 职位与职责描述的合并语料
	AllExperience string

	// ExperienceLevel 以历史职位数量作为经验水平的代理指标
	ExperienceLevel int
	MatchCategory   string
}

// 规范列名到RawRow字段的映射。
// 原始数据源的列名存在BOM前缀与拼写错误(educationaL_requirements、
// experiencere_requirement)，加载时统一映射到干净的规范名，
// 杂乱列名不允许泄漏到这一层之后。
var columnAliases = map[string]string{
	"job_position_name":        "job_title",
	"job_title":                "job_title",
	"skills":                   "skills",
	"career_objective":         "career_objective",
	"degree_names":             "degree_names",
	"major_field_of_studies":   "major_field_of_studies",
	"positions":                "positions",
	"responsibilities":         "responsibilities",
	"skills_required":          "skills_required",
	"educational_requirements": "education_requirement",
	"educational_requirement":  "education_requirement",
	"experiencere_requirement": "experience_requirement",
	"experience_requirement":   "experience_requirement",
	"matched_score":            "matched_score",
}

// 缺少这些列时训练无法进行，直接报错终止
var requiredColumns = []string{
	"job_title", "skills", "positions", "responsibilities", "skills_required", "matched_score",
}

// canonicalColumn 去除BOM与大小写差异后查找规范列名
func canonicalColumn(header string) (string, bool) {
	header = strings.TrimPrefix(header, "\uFEFF")
	header = strings.ToLower(strings.TrimSpace(header))
	name, ok := columnAliases[header]
	return name, ok
}

// LoadCSV 从CSV文件加载原始数据集
func LoadCSV(path string) ([]RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开数据集文件失败: %w", err)
	}
	defer f.Close()
	return ReadRows(f)
}

// ReadRows 从CSV流读取原始数据集。
// 第一行为表头，经columnAliases映射到规范列名；
// 缺失文本填充"N/A"哨兵，缺失数值填充0。
func ReadRows(r io.Reader) ([]RawRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("读取数据集表头失败: %w", err)
	}

	colIndex := make(map[string]int)
	for i, h := range header {
		if name, ok := canonicalColumn(h); ok {
			colIndex[name] = i
		}
	}
	for _, col := range requiredColumns {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("数据集缺少必需列: %s", col)
		}
	}

	field := func(record []string, name string) string {
		idx, ok := colIndex[name]
		if !ok || idx >= len(record) {
			return textutil.MissingSentinel
		}
		v := strings.TrimSpace(record[idx])
		if v == "" {
			return textutil.MissingSentinel
		}
		return v
	}

	var rows []RawRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("读取数据集记录失败: %w", err)
		}

		score := 0.0
		if raw := field(record, "matched_score"); raw != textutil.MissingSentinel {
			// 解析失败视为缺失，按0处理
			if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
				score = parsed
			}
		}

		rows = append(rows, RawRow{
			JobTitle:              field(record, "job_title"),
			Skills:                field(record, "skills"),
			CareerObjective:       field(record, "career_objective"),
			DegreeNames:           field(record, "degree_names"),
			MajorFieldOfStudies:   field(record, "major_field_of_studies"),
			Positions:             field(record, "positions"),
			Responsibilities:      field(record, "responsibilities"),
			SkillsRequired:        field(record, "skills_required"),
			EducationRequirement:  field(record, "education_requirement"),
			ExperienceRequirement: field(record, "experience_requirement"),
			MatchedScore:          score,
		})
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("数据集为空")
	}
	return rows, nil
}

// Deduplicate 删除完全重复的记录，保持首次出现的顺序
func Deduplicate(rows []RawRow) []RawRow {
	seen := make(map[RawRow]struct{}, len(rows))
	out := make([]RawRow, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row]; ok {
			continue
		}
		seen[row] = struct{}{}
		out = append(out, row)
	}
	return out
}

// Clean 对单条记录做文本清洗、列表解析与类别派生
func Clean(row RawRow) CleanedRow {
	c := CleanedRow{Raw: row}

	c.SkillsCleaned = textutil.Normalize(row.Skills)
	c.PositionsCleaned = textutil.Normalize(row.Positions)
	c.ResponsibilitiesCleaned = textutil.Normalize(row.Responsibilities)
	c.SkillsRequiredCleaned = textutil.Normalize(row.SkillsRequired)

	c.SkillsList = textutil.ParseListString(row.Skills)
	c.PositionsList = textutil.ParseListString(row.Positions)
	c.DegreeList = textutil.ParseListString(row.DegreeNames)

	c.AllSkills = strings.TrimSpace(c.SkillsCleaned + " " + c.SkillsRequiredCleaned)
	c.AllExperience = strings.TrimSpace(c.PositionsCleaned + " " + c.ResponsibilitiesCleaned)
	c.ExperienceLevel = len(c.PositionsList)
	c.MatchCategory = BinMatchScore(row.MatchedScore)

	return c
}

// CleanAll 批量清洗
func CleanAll(rows []RawRow) []CleanedRow {
	out := make([]CleanedRow, len(rows))
	for i, row := range rows {
		out[i] = Clean(row)
	}
	return out
}

// BinMatchScore 把连续的匹配分数分箱为四个有序类别。
// 分箱边界为半开区间 (0,0.4] (0.4,0.6] (0.6,0.8] (0.8,1]:
// 0.4属于Low、0.6属于Medium、0.8属于High。
// 小于等于0(含缺失回填的0)并入最低档Low，大于1并入Excellent。
func BinMatchScore(score float64) string {
	switch {
	case score <= 0.4:
		return CategoryLow
	case score <= 0.6:
		return CategoryMedium
	case score <= 0.8:
		return CategoryHigh
	default:
		return CategoryExcellent
	}
}
