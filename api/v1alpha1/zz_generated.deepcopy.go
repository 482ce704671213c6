// Copyright Contributors to the testsys project

// Hand-written in place of controller-gen output; no code generator is run
// as part of this build. Shape matches what `controller-gen object` would
// produce for these types.

package v1alpha1

import (
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	runtime "k8s.io/apimachinery/pkg/runtime"
)

func (in *AgentDescriptor) DeepCopyInto(out *AgentDescriptor) {
	*out = *in
	if in.Configuration != nil {
		out.Configuration = in.Configuration.DeepCopy()
	}
	if in.Secrets != nil {
		m := make(map[string]string, len(in.Secrets))
		for k, v := range in.Secrets {
			m[k] = v
		}
		out.Secrets = m
	}
	if in.Capabilities != nil {
		c := make([]string, len(in.Capabilities))
		copy(c, in.Capabilities)
		out.Capabilities = c
	}
	if in.Timeout != nil {
		t := *in.Timeout
		out.Timeout = &t
	}
}

func (in *AgentDescriptor) DeepCopy() *AgentDescriptor {
	if in == nil {
		return nil
	}
	out := new(AgentDescriptor)
	in.DeepCopyInto(out)
	return out
}

func deepCopyJSON(in *apiextensionsv1.JSON) *apiextensionsv1.JSON {
	if in == nil {
		return nil
	}
	return in.DeepCopy()
}

func (in *AgentTaskStatus) DeepCopyInto(out *AgentTaskStatus) {
	*out = *in
	out.Results = deepCopyJSON(in.Results)
}

func (in *AgentTaskStatus) DeepCopy() *AgentTaskStatus {
	if in == nil {
		return nil
	}
	out := new(AgentTaskStatus)
	in.DeepCopyInto(out)
	return out
}

func (in *ControllerResourceStatus) DeepCopyInto(out *ControllerResourceStatus) {
	*out = *in
}

func (in *TestSpec) DeepCopyInto(out *TestSpec) {
	*out = *in
	in.Agent.DeepCopyInto(&out.Agent)
	if in.Resources != nil {
		r := make([]string, len(in.Resources))
		copy(r, in.Resources)
		out.Resources = r
	}
	if in.DependsOnTests != nil {
		d := make([]string, len(in.DependsOnTests))
		copy(d, in.DependsOnTests)
		out.DependsOnTests = d
	}
}

func (in *TestSpec) DeepCopy() *TestSpec {
	if in == nil {
		return nil
	}
	out := new(TestSpec)
	in.DeepCopyInto(out)
	return out
}

func (in *TestStatus) DeepCopyInto(out *TestStatus) {
	*out = *in
	in.Agent.DeepCopyInto(&out.Agent)
	if in.Controller != nil {
		m := make(map[string]ControllerResourceStatus, len(in.Controller))
		for k, v := range in.Controller {
			m[k] = v
		}
		out.Controller = m
	}
}

func (in *TestStatus) DeepCopy() *TestStatus {
	if in == nil {
		return nil
	}
	out := new(TestStatus)
	in.DeepCopyInto(out)
	return out
}

func (in *Test) DeepCopyInto(out *Test) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	in.Spec.DeepCopyInto(&out.Spec)
	in.Status.DeepCopyInto(&out.Status)
}

func (in *Test) DeepCopy() *Test {
	if in == nil {
		return nil
	}
	out := new(Test)
	in.DeepCopyInto(out)
	return out
}

func (in *Test) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

func (in *TestList) DeepCopyInto(out *TestList) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ListMeta.DeepCopyInto(&out.ListMeta)
	if in.Items != nil {
		items := make([]Test, len(in.Items))
		for i := range in.Items {
			in.Items[i].DeepCopyInto(&items[i])
		}
		out.Items = items
	}
}

func (in *TestList) DeepCopy() *TestList {
	if in == nil {
		return nil
	}
	out := new(TestList)
	in.DeepCopyInto(out)
	return out
}

func (in *TestList) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

func (in *TaskStatus) DeepCopyInto(out *TaskStatus) {
	*out = *in
	out.CreatedResource = deepCopyJSON(in.CreatedResource)
}

func (in *TaskStatus) DeepCopy() *TaskStatus {
	if in == nil {
		return nil
	}
	out := new(TaskStatus)
	in.DeepCopyInto(out)
	return out
}

func (in *ResourceSpec) DeepCopyInto(out *ResourceSpec) {
	*out = *in
	in.Agent.DeepCopyInto(&out.Agent)
	if in.DependsOn != nil {
		d := make([]string, len(in.DependsOn))
		copy(d, in.DependsOn)
		out.DependsOn = d
	}
	if in.ConflictsWith != nil {
		c := make([]string, len(in.ConflictsWith))
		copy(c, in.ConflictsWith)
		out.ConflictsWith = c
	}
}

func (in *ResourceSpec) DeepCopy() *ResourceSpec {
	if in == nil {
		return nil
	}
	out := new(ResourceSpec)
	in.DeepCopyInto(out)
	return out
}

func (in *ResourceStatus) DeepCopyInto(out *ResourceStatus) {
	*out = *in
	in.Creation.DeepCopyInto(&out.Creation)
	in.Destruction.DeepCopyInto(&out.Destruction)
	out.AgentInfo = deepCopyJSON(in.AgentInfo)
}

func (in *ResourceStatus) DeepCopy() *ResourceStatus {
	if in == nil {
		return nil
	}
	out := new(ResourceStatus)
	in.DeepCopyInto(out)
	return out
}

func (in *Resource) DeepCopyInto(out *Resource) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	in.Spec.DeepCopyInto(&out.Spec)
	in.Status.DeepCopyInto(&out.Status)
}

func (in *Resource) DeepCopy() *Resource {
	if in == nil {
		return nil
	}
	out := new(Resource)
	in.DeepCopyInto(out)
	return out
}

func (in *Resource) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

func (in *ResourceList) DeepCopyInto(out *ResourceList) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ListMeta.DeepCopyInto(&out.ListMeta)
	if in.Items != nil {
		items := make([]Resource, len(in.Items))
		for i := range in.Items {
			in.Items[i].DeepCopyInto(&items[i])
		}
		out.Items = items
	}
}

func (in *ResourceList) DeepCopy() *ResourceList {
	if in == nil {
		return nil
	}
	out := new(ResourceList)
	in.DeepCopyInto(out)
	return out
}

func (in *ResourceList) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}
