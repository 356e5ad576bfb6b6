package gitobj

import (
	"os"
	"sync"
)

// environment is a process-wide, lazily-initialized snapshot of the ambient
// credential-helper variables. It is captured once on first use and never
// re-read: subsequent mutations to the process environment are invisible to
// already-running git-backed ledgers, by design (see DESIGN.md).
type environment struct {
	sshAgentPID   string
	sshAgentPIDOK bool
	sshAuthSock   string
	sshAuthSockOK bool
	gitSSHCommand string
	gitSSHCmdOK   bool
	gitSSH        string
	gitSSHOK      bool
	gitAskpass    string
	gitAskpassOK  bool
}

var (
	capturedEnvironmentOnce sync.Once
	capturedEnvironmentVal  *environment
)

// capturedEnvironment returns the process-wide environment snapshot,
// capturing it from os.Environ() on the first call.
func capturedEnvironment() *environment {
	capturedEnvironmentOnce.Do(func() {
		capturedEnvironmentVal = newEnvironment()
	})
	return capturedEnvironmentVal
}

// ChildEnv returns the environment a git subprocess spawned by this package
// would receive. Exported so test helpers (see pkg/gitobj/testutil) that
// shell out to git directly, outside of a Git value, stay consistent with
// production child-process isolation instead of growing their own copy.
func ChildEnv() []string {
	return capturedEnvironment().buildChildEnv()
}

func newEnvironment() *environment {
	e := &environment{}
	e.sshAgentPID, e.sshAgentPIDOK = os.LookupEnv("SSH_AGENT_PID")
	e.sshAuthSock, e.sshAuthSockOK = os.LookupEnv("SSH_AUTH_SOCK")
	e.gitSSHCommand, e.gitSSHCmdOK = os.LookupEnv("GIT_SSH_COMMAND")
	e.gitSSH, e.gitSSHOK = os.LookupEnv("GIT_SSH")
	e.gitAskpass, e.gitAskpassOK = os.LookupEnv("GIT_ASKPASS")
	return e
}

// buildChildEnv constructs the environment for a spawned git subprocess:
// every ambient variable is cleared except the captured credential-helper
// wiring, plus a forced, reproducible committer/author identity and
// GIT_CONFIG_NOSYSTEM so host-level git config cannot influence commits.
func (e *environment) buildChildEnv() []string {
	env := []string{
		"GIT_CONFIG_NOSYSTEM=",
		"GIT_COMMITTER_NAME=git-ledger",
		"GIT_COMMITTER_EMAIL=git-ledger@localhost",
		"GIT_AUTHOR_NAME=git-ledger",
		"GIT_AUTHOR_EMAIL=git-ledger@localhost",
	}
	add := func(key, value string, ok bool) {
		if ok {
			env = append(env, key+"="+value)
		}
	}
	add("SSH_AGENT_PID", e.sshAgentPID, e.sshAgentPIDOK)
	add("SSH_AUTH_SOCK", e.sshAuthSock, e.sshAuthSockOK)
	add("GIT_SSH_COMMAND", e.gitSSHCommand, e.gitSSHCmdOK)
	add("GIT_SSH", e.gitSSH, e.gitSSHOK)
	add("GIT_ASKPASS", e.gitAskpass, e.gitAskpassOK)
	return env
}
