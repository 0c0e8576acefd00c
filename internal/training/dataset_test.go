package training

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "\uFEFFjob_position_name,skills,career_objective,degree_names,major_field_of_studies,positions,responsibilities,skills_required,educationaL_requirements,experiencere_requirement,matched_score\n" +
	"Data Scientist,\"['Python', 'SQL']\",build models,\"['B.Sc']\",\"['CS']\",\"['Analyst', 'Scientist']\",built dashboards,python sql,Bachelor,2 years,0.85\n" +
	"Backend Engineer,\"['Java']\",,,,\"['Engineer']\",wrote services,java spring,,,0.45\n" +
	"Backend Engineer,\"['Java']\",,,,\"['Engineer']\",wrote services,java spring,,,0.45\n"

func TestReadRowsHeaderMapping(t *testing.T) {
	rows, err := ReadRows(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// BOM前缀与拼写错误的列名被映射到规范字段
	assert.Equal(t, "Data Scientist", rows[0].JobTitle)
	assert.Equal(t, "Bachelor", rows[0].EducationRequirement)
	assert.Equal(t, "2 years", rows[0].ExperienceRequirement)
	assert.InDelta(t, 0.85, rows[0].MatchedScore, 1e-9)
}

func TestReadRowsMissingValues(t *testing.T) {
	rows, err := ReadRows(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	// 空文本字段回填哨兵
	assert.Equal(t, "N/A", rows[1].CareerObjective)
	assert.Equal(t, "N/A", rows[1].EducationRequirement)
}

func TestReadRowsMissingRequiredColumn(t *testing.T) {
	csv := "job_position_name,skills\nData Scientist,\"['Python']\"\n"
	_, err := ReadRows(strings.NewReader(csv))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "缺少必需列")
}

func TestReadRowsEmptyDataset(t *testing.T) {
	header := "job_position_name,skills,positions,responsibilities,skills_required,matched_score\n"
	_, err := ReadRows(strings.NewReader(header))
	assert.Error(t, err)
}

func TestDeduplicate(t *testing.T) {
	rows, err := ReadRows(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	deduped := Deduplicate(rows)
	assert.Len(t, deduped, 2, "完全重复的记录只保留一条")
	assert.Equal(t, "Data Scientist", deduped[0].JobTitle)
	assert.Equal(t, "Backend Engineer", deduped[1].JobTitle)
}

func TestClean(t *testing.T) {
	row := RawRow{
		JobTitle:       "Data Scientist",
		Skills:         "['Python', 'Machine-Learning!']",
		Positions:      "['Analyst', 'Scientist']",
		SkillsRequired: "Python, SQL",
		MatchedScore:   0.85,
	}
	c := Clean(row)

	assert.Equal(t, []string{"Python", "Machine-Learning!"}, c.SkillsList)
	assert.Equal(t, 2, c.ExperienceLevel, "经验水平等于历史职位数量")
	assert.Equal(t, CategoryExcellent, c.MatchCategory)
	assert.Contains(t, c.AllSkills, "python")
	assert.Contains(t, c.AllSkills, "sql")
}

func TestBinMatchScoreBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{-0.5, CategoryLow}, // 越界低值并入最低档
		{0, CategoryLow},    // 缺失回填的0同样并入Low
		{0.2, CategoryLow},
		{0.4, CategoryLow}, // 边界值属于左侧箱
		{0.45, CategoryMedium},
		{0.6, CategoryMedium},
		{0.75, CategoryHigh},
		{0.8, CategoryHigh},
		{0.81, CategoryExcellent},
		{1.0, CategoryExcellent},
		{1.5, CategoryExcellent}, // 越界高值并入最高档
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, BinMatchScore(tc.score), "score=%v", tc.score)
	}
}
