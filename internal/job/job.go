package job

// Kind はジョブの種別
type Kind int

const (
	KindTask Kind = iota
	KindTerminate
)

func (k Kind) String() string {
	switch k {
	case KindTask:
		return "Task"
	case KindTerminate:
		return "Terminate"
	default:
		return "Unknown"
	}
}

// Job はキューに載る作業単位、または停止センチネル
type Job struct {
	kind Kind
	work func()
}

// New は work を包んだタスクを作成する
func New(work func()) Job {
	return Job{kind: KindTask, work: work}
}

// Terminate は停止センチネルを作成する
func Terminate() Job {
	return Job{kind: KindTerminate}
}

// Kind はジョブの種別を返す
func (j Job) Kind() Kind {
	return j.kind
}

// IsTerminate は停止センチネルかどうかを返す
func (j Job) IsTerminate() bool {
	return j.kind == KindTerminate
}

// Run はタスクを実行する。センチネルや空のタスクでは何もしない
func (j Job) Run() {
	if j.kind != KindTask || j.work == nil {
		return
	}
	j.work()
}
