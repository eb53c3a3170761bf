package scoring

// ItemCount is the number of questionnaire items
const ItemCount = 90

// Answer bounds
const (
	MinAnswer = 1
	MaxAnswer = 5
)

// Dimension is a named, contiguous 1-based slice of the answer vector
type Dimension struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Label       string `json:"label"`
	First       int    `json:"first"`
	Last        int    `json:"last"`
	Description string `json:"description"`
}

// Items returns the number of answers in the dimension
func (d Dimension) Items() int {
	return d.Last - d.First + 1
}

// Dimensions partitions the 90 items, in questionnaire order
var Dimensions = []Dimension{
	{Key: "somatization", Name: "躯体化", Label: "Somatization", First: 1, Last: 12,
		Description: "反映身体不适感，包括心血管、胃肠道、呼吸系统等方面的主诉。"},
	{Key: "obsessive_compulsive", Name: "强迫症状", Label: "Obsessive-compulsive", First: 13, Last: 22,
		Description: "包括强迫思维和强迫行为，如重复检查、反复思考等。"},
	{Key: "interpersonal_sensitivity", Name: "人际关系敏感", Label: "Interpersonal sensitivity", First: 23, Last: 31,
		Description: "反映人际交往中的不自在感、自卑感以及对他人评价的敏感。"},
	{Key: "depression", Name: "抑郁", Label: "Depression", First: 32, Last: 44,
		Description: "包括情绪低落、兴趣减退、缺乏活力、悲观失望等抑郁症状。"},
	{Key: "anxiety", Name: "焦虑", Label: "Anxiety", First: 45, Last: 54,
		Description: "反映紧张不安、烦躁、惊恐发作等焦虑情绪和躯体症状。"},
	{Key: "hostility", Name: "敌对", Label: "Hostility", First: 55, Last: 60,
		Description: "包括敌对思维、情感及行为，如愤怒、冲动、破坏性等。"},
	{Key: "phobic_anxiety", Name: "恐怖", Label: "Phobic anxiety", First: 61, Last: 67,
		Description: "反映对特定情境、物体或活动的恐惧与回避行为。"},
	{Key: "paranoid_ideation", Name: "偏执", Label: "Paranoid ideation", First: 68, Last: 73,
		Description: "包括多疑、关系妄想、被害思想、夸大等偏执性特征。"},
	{Key: "psychoticism", Name: "精神病性", Label: "Psychoticism", First: 74, Last: 83,
		Description: "反映幻觉、妄想、思维障碍等精神病性症状。"},
	{Key: "other", Name: "其他", Label: "Other", First: 84, Last: 90,
		Description: "包括睡眠障碍、饮食问题等其他症状。"},
}

// DimensionByKey looks a dimension up by its key
func DimensionByKey(key string) (Dimension, bool) {
	for _, d := range Dimensions {
		if d.Key == key {
			return d, true
		}
	}
	return Dimension{}, false
}
